// Package color converts the hex color strings used in key descriptors.
package color

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	deckerrors "github.com/alexisbeaulieu97/deckr/pkg/errors"
)

// RGB is a color triple with each channel in [0,255].
type RGB struct {
	R, G, B uint8
}

// Black is the color written to slots without an element.
var Black = RGB{}

// String renders the color as #rrggbb.
func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// IsHex reports whether s is a 3 or 6 digit hex color, with or without a leading '#'.
func IsHex(s string) bool {
	_, err := HexToRGB(s)
	return err == nil
}

// HexToRGB converts "#abc", "abc", "#aabbcc" or "aabbcc" into an RGB triple.
// Shorthand digits are doubled, so "#abc" and "#aabbcc" are the same color.
func HexToRGB(hex string) (RGB, error) {
	digits := strings.TrimPrefix(hex, "#")
	if (len(digits) != 3 && len(digits) != 6) || strings.IndexFunc(digits, notHexDigit) >= 0 {
		return RGB{}, deckerrors.NewValidationError("color", fmt.Sprintf("%q is not a 3 or 6 digit hex color", hex), nil)
	}

	c, err := colorful.Hex("#" + digits)
	if err != nil {
		return RGB{}, deckerrors.NewValidationError("color", fmt.Sprintf("%q is not a hex color", hex), err)
	}

	r, g, b := c.RGB255()
	return RGB{R: r, G: g, B: b}, nil
}

// colorful.Hex scans with fmt, which tolerates signs and spaces.
func notHexDigit(r rune) bool {
	return !strings.ContainsRune("0123456789abcdefABCDEF", r)
}

// MustHexToRGB is like HexToRGB but panics on malformed input.
func MustHexToRGB(hex string) RGB {
	c, err := HexToRGB(hex)
	if err != nil {
		panic(err)
	}
	return c
}
