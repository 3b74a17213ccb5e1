package element

import (
	"strconv"
	"strings"
	"unsafe"
)

// Type is the host element type of an LCD key.
const Type = "lcdKey"

// Props describes the desired state of one key. The zero value of each field
// means unset.
type Props struct {
	// Position pins the key to a slot. When nil the tree position is used.
	Position *int
	// Image is a file path rendered when Color is empty.
	Image string
	// Color is a 3 or 6 digit hex color. It takes precedence over Image.
	Color string
	// OnPress runs when the key goes down.
	OnPress func()
}

// String summarises the set fields, for logs.
func (p Props) String() string {
	var parts []string
	if p.Position != nil {
		parts = append(parts, "position="+strconv.Itoa(*p.Position))
	}
	if p.Image != "" {
		parts = append(parts, "image="+p.Image)
	}
	if p.Color != "" {
		parts = append(parts, "color="+p.Color)
	}
	if p.OnPress != nil {
		parts = append(parts, "onPress")
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// At returns a pointer suitable for Props.Position.
func At(position int) *int {
	return &position
}

// Field identifies one Props field in a Patch.
type Field uint8

const (
	FieldPosition Field = 1 << iota
	FieldImage
	FieldColor
	FieldOnPress
)

var fieldNames = []struct {
	f    Field
	name string
}{
	{FieldPosition, "position"},
	{FieldImage, "image"},
	{FieldColor, "color"},
	{FieldOnPress, "onPress"},
}

// Patch is a prop update payload: the fields it names replace the current
// values, a zero value in Values unsets that field.
type Patch struct {
	Fields Field
	Values Props
}

// Has reports whether the patch touches f.
func (p *Patch) Has(f Field) bool {
	return p != nil && p.Fields&f != 0
}

// String lists the patched field names.
func (p *Patch) String() string {
	if p == nil {
		return "<nil>"
	}
	var names []string
	for _, fn := range fieldNames {
		if p.Has(fn.f) {
			names = append(names, fn.name)
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Diff compares two descriptors and returns nil when nothing observable
// changed. Fields set in prev and unset in next are included with their zero
// value; fields whose value differs or is newly set carry next's value.
// Callbacks are compared by closure identity. Diff never mutates its inputs.
func Diff(prev, next Props) *Patch {
	var p Patch

	if !samePosition(prev.Position, next.Position) {
		p.Fields |= FieldPosition
		if next.Position != nil {
			p.Values.Position = At(*next.Position)
		}
	}
	if prev.Image != next.Image {
		p.Fields |= FieldImage
		p.Values.Image = next.Image
	}
	if prev.Color != next.Color {
		p.Fields |= FieldColor
		p.Values.Color = next.Color
	}
	if !sameFunc(prev.OnPress, next.OnPress) {
		p.Fields |= FieldOnPress
		p.Values.OnPress = next.OnPress
	}

	if p.Fields == 0 {
		return nil
	}
	return &p
}

// Apply returns props with the patch merged in.
func (p *Patch) Apply(props Props) Props {
	if p == nil {
		return props
	}
	if p.Has(FieldPosition) {
		props.Position = nil
		if p.Values.Position != nil {
			props.Position = At(*p.Values.Position)
		}
	}
	if p.Has(FieldImage) {
		props.Image = p.Values.Image
	}
	if p.Has(FieldColor) {
		props.Color = p.Values.Color
	}
	if p.Has(FieldOnPress) {
		props.OnPress = p.Values.OnPress
	}
	return props
}

func samePosition(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// sameFunc compares the closure objects behind a and b. A func value is a
// pointer to its closure, so two closures from one literal that capture
// different variables are different callbacks.
func sameFunc(a, b func()) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(&a)) == *(*unsafe.Pointer)(unsafe.Pointer(&b))
}
