package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// refreshInterval is how often the dashboard re-reads the database in
// the background, independent of the manual "r" refresh key.
const refreshInterval = 5 * time.Second

type Model struct {
	reader *Reader

	dashboard Dashboard
	err       error
	connected bool

	width  int
	height int
	ready  bool

	viewport viewport.Model
	table    table.Model
}

// Messages

type snapshotMsg struct {
	dashboard Dashboard
	err       error
}

type refreshTickMsg time.Time

func NewModel(reader *Reader) Model {
	return Model{reader: reader}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchSnapshot(m.reader), refreshTickCmd())
}

func fetchSnapshot(r *Reader) tea.Cmd {
	return func() tea.Msg {
		d, err := r.Snapshot()
		return snapshotMsg{dashboard: d, err: err}
	}
}

func refreshTickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}
