package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/uptimewatcher/watcher/internal/domain"
)

var (
	upStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	downStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	footerStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

func (m *Model) rebuildContent() {
	m.viewport.SetContent(m.table.View())
}

func (m Model) View() string {
	if !m.ready {
		return "initializing…"
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("database unreachable: %v", m.err))
	}

	status := "connected"
	if !m.connected {
		status = "disconnected"
	}
	header := headerStyle.Render(fmt.Sprintf("uptime watcher — %s — history limit %d", status, m.dashboard.HistoryLimit))

	footer := footerStyle.Render("q quit · r refresh · ↑/↓ navigate")

	return strings.Join([]string{header, m.viewport.View(), footer}, "\n")
}

func statusStyled(status domain.MonitorStatus) string {
	switch status {
	case domain.StatusUp:
		return upStyle.Render(string(status))
	case domain.StatusDown:
		return downStyle.Render(string(status))
	case domain.StatusPaused:
		return pausedStyle.Render(string(status))
	default:
		return pendingStyle.Render(string(status))
	}
}

func formatResponseTime(ms int) string {
	if ms == domain.NeverChecked {
		return "-"
	}
	return strconv.Itoa(ms) + "ms"
}

func formatLastChecked(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}
