package simulator

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// changedMsg is sent when the deck reports a key change.
type changedMsg struct{}

// Model is the bubbletea model drawing a Deck.
type Model struct {
	deck    *Deck
	title   string
	cursor  int
	help    help.Model
	pressed int
	last    int
}

// NewModel returns a model showing d.
func NewModel(d *Deck, title string) Model {
	return Model{deck: d, title: title, help: help.New(), last: -1}
}

// Init starts listening for deck changes.
func (m Model) Init() tea.Cmd {
	return waitForChange(m.deck)
}

func waitForChange(d *Deck) tea.Cmd {
	return func() tea.Msg {
		<-d.Changes()
		return changedMsg{}
	}
}

// Update handles key presses and deck change notifications.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case changedMsg:
		return m, waitForChange(m.deck)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	layout := m.deck.Layout()
	row, col := m.cursor/layout.Columns, m.cursor%layout.Columns

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, keys.Up):
		if row > 0 {
			m.cursor -= layout.Columns
		}
	case key.Matches(msg, keys.Down):
		if row < layout.Rows-1 {
			m.cursor += layout.Columns
		}
	case key.Matches(msg, keys.Left):
		if col > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Right):
		if col < layout.Columns-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Press):
		m.deck.Press(m.cursor)
		m.pressed++
		m.last = m.cursor
	}
	return m, nil
}

// Cursor returns the selected key index.
func (m Model) Cursor() int { return m.cursor }

// Run shows d in the terminal until the user quits or ctx is done.
func Run(ctx context.Context, d *Deck, title string) error {
	p := tea.NewProgram(NewModel(d, title), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	return nil
}
