package simulator

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the deck grid, a status line and the help bar.
func (m Model) View() string {
	layout := m.deck.Layout()
	slots := m.deck.Slots()

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s, %d keys)", m.title, layout.Name, layout.Keys())))
	b.WriteString("\n")

	rows := make([]string, 0, layout.Rows)
	for r := 0; r < layout.Rows; r++ {
		cells := make([]string, 0, layout.Columns)
		for c := 0; c < layout.Columns; c++ {
			index := r*layout.Columns + c
			cells = append(cells, m.renderKey(index, slots[index]))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	b.WriteString("\n")

	status := fmt.Sprintf("key %d", m.cursor)
	if m.last >= 0 {
		status += fmt.Sprintf(" · last press %d · %d presses", m.last, m.pressed)
	}
	b.WriteString(statusStyle.Render(status))
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func (m Model) renderKey(index int, s Slot) string {
	style := keyStyle
	if index == m.cursor {
		style = selectedKeyStyle
	}

	label := fmt.Sprintf("%d", index)
	if s.Image {
		label += "\nimg"
	}
	if !s.Written {
		return style.Render(label)
	}

	fg := lipgloss.Color("255")
	if luminance(s) > 140 {
		fg = lipgloss.Color("16")
	}
	return style.
		Background(lipgloss.Color(s.Color.String())).
		Foreground(fg).
		Render(label)
}

func luminance(s Slot) int {
	return (299*int(s.Color.R) + 587*int(s.Color.G) + 114*int(s.Color.B)) / 1000
}
