package deckr

import (
	"github.com/alexisbeaulieu97/deckr/internal/element"
	"github.com/alexisbeaulieu97/deckr/internal/reconciler"
)

// KeyProps describes one key: its position, image or color, and press callback.
type KeyProps = element.Props

// Element is a node of a deck tree.
type Element = reconciler.Element[KeyProps]

// At returns a pointer suitable for KeyProps.Position.
func At(position int) *int {
	return element.At(position)
}

// LcdKey returns a key element. Without a Position the key takes its index
// among its siblings.
func LcdKey(props KeyProps) Element {
	return Element{Type: element.Type, Props: props}
}

// LcdKeyAt returns a key element pinned to position.
func LcdKeyAt(position int, props KeyProps) Element {
	props.Position = At(position)
	return LcdKey(props)
}

// Fragment groups elements.
func Fragment(children ...Element) Element {
	return reconciler.Fragment(children...)
}

// Text returns a text leaf. Decks cannot display text: rendering one fails.
func Text(s string) Element {
	return reconciler.Text[KeyProps](s)
}

// Keyed sets the identity key the reconciler matches el by across renders.
func Keyed(key string, el Element) Element {
	el.Key = key
	return el
}
