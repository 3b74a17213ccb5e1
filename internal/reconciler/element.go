package reconciler

const (
	// TypeFragment groups children without creating a host instance.
	TypeFragment = "fragment"
	// TypeText marks a text leaf.
	TypeText = "#text"
)

// Element is one node of a declarative tree.
type Element[P any] struct {
	Type     string
	Key      string
	Props    P
	Children []Element[P]
	Text     string
}

// Fragment groups children under one node.
func Fragment[P any](children ...Element[P]) Element[P] {
	return Element[P]{Type: TypeFragment, Children: children}
}

// Text returns a text leaf.
func Text[P any](s string) Element[P] {
	return Element[P]{Type: TypeText, Text: s}
}
