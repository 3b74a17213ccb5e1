package layout

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/deckr/internal/config"
	"github.com/alexisbeaulieu97/deckr/pkg/color"
)

// Describe renders a layout as stable text, one line per key, for diffing.
func Describe(cfg *config.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "layout %s (version %s)\n", cfg.Name, cfg.Version)

	start := cfg.StartPage()
	for _, page := range cfg.Pages {
		marker := ""
		if page.Name == start {
			marker = " (start)"
		}
		fmt.Fprintf(&b, "page %s%s\n", page.Name, marker)

		type line struct {
			slot int
			text string
		}
		lines := make([]line, 0, len(page.Keys))
		for i, k := range page.Keys {
			lines = append(lines, line{slot: k.Slot(i), text: describeKey(k)})
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].slot < lines[j].slot })

		for _, l := range lines {
			fmt.Fprintf(&b, "  key %d: %s\n", l.slot, l.text)
		}
	}
	return b.String()
}

func describeKey(k config.Key) string {
	var face string
	switch {
	case k.Color != "":
		face = "color " + normalizeColor(k.Color)
		if k.Image != "" {
			face += " (image " + k.Image + " hidden)"
		}
	case k.Image != "":
		face = "image " + k.Image
	default:
		face = "blank"
	}

	if k.OnPress == nil {
		return face
	}
	if k.OnPress.Page != "" {
		return face + " -> page " + k.OnPress.Page
	}
	return fmt.Sprintf("%s -> command %q", face, k.OnPress.Command)
}

func normalizeColor(hex string) string {
	rgb, err := color.HexToRGB(hex)
	if err != nil {
		return hex
	}
	return rgb.String()
}
