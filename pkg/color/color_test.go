package color

import (
	"testing"

	"github.com/stretchr/testify/require"

	deckerrors "github.com/alexisbeaulieu97/deckr/pkg/errors"
)

func TestHexToRGB(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want RGB
	}{
		{name: "six digits with hash", in: "#ff8000", want: RGB{R: 255, G: 128, B: 0}},
		{name: "six digits without hash", in: "00ff7f", want: RGB{R: 0, G: 255, B: 127}},
		{name: "shorthand with hash", in: "#fff", want: RGB{R: 255, G: 255, B: 255}},
		{name: "shorthand without hash", in: "0a0", want: RGB{R: 0, G: 170, B: 0}},
		{name: "upper case", in: "#ABCDEF", want: RGB{R: 0xab, G: 0xcd, B: 0xef}},
		{name: "black", in: "#000000", want: Black},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := HexToRGB(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestHexToRGB_ShorthandMatchesLongForm(t *testing.T) {
	t.Parallel()

	digits := "0123456789abcdef"
	for _, r := range digits {
		for _, g := range digits {
			short := "#" + string(r) + string(g) + "c"
			long := "#" + string(r) + string(r) + string(g) + string(g) + "cc"

			a, err := HexToRGB(short)
			require.NoError(t, err)
			b, err := HexToRGB(long)
			require.NoError(t, err)
			require.Equal(t, b, a, "%s vs %s", short, long)
		}
	}

	require.Equal(t, MustHexToRGB("#aabbcc"), MustHexToRGB("#abc"))
}

func TestHexToRGB_RejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "#", "#ab", "#abcd", "#ggg", "red", "##abc", "#aabbccdd", "#1 2345", "#+12345", " fff"} {
		_, err := HexToRGB(in)
		require.Error(t, err, in)

		var validationErr *deckerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.False(t, IsHex(in))
	}
}

func TestMustHexToRGBPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { MustHexToRGB("nope") })
}

func TestRGBString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "#aabbcc", MustHexToRGB("abc").String())
}
