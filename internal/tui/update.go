package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport = viewport.New(m.width, m.height-2)
		m.ready = true
		m.rebuildTable()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Refresh):
			return m, fetchSnapshot(m.reader)
		}

	case snapshotMsg:
		if msg.err != nil {
			m.connected = false
			m.err = msg.err
		} else {
			m.connected = true
			m.err = nil
			m.dashboard = msg.dashboard
			m.rebuildTable()
		}

	case refreshTickMsg:
		cmds = append(cmds, fetchSnapshot(m.reader), refreshTickCmd())
	}

	if m.ready {
		m.rebuildContent()
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)

		m.table, cmd = m.table.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) rebuildTable() {
	columns := []table.Column{
		{Title: "Site", Width: 20},
		{Title: "Monitor", Width: 12},
		{Title: "Status", Width: 10},
		{Title: "Resp (ms)", Width: 10},
		{Title: "Last Checked", Width: 20},
	}

	var rows []table.Row
	for _, site := range m.dashboard.Sites {
		for _, mon := range site.Monitors {
			rows = append(rows, table.Row{
				site.Name,
				string(mon.Type),
				statusStyled(mon.Status),
				formatResponseTime(mon.ResponseTimeMS),
				formatLastChecked(mon.LastChecked),
			})
		}
	}

	h := m.height - 5
	if h < 5 {
		h = 5
	}
	m.table = table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(h),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true)
	m.table.SetStyles(s)
}
