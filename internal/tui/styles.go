package tui

import (
	"github.com/MKhiriev/reflog-sync/internal/service"
	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	detailStyle = lipgloss.NewStyle().Faint(true)

	statusStyles = map[service.SyncStatus]lipgloss.Style{
		service.StatusIdle:    labelStyle.Foreground(lipgloss.Color("2")),
		service.StatusSyncing: labelStyle.Foreground(lipgloss.Color("4")),
		service.StatusOffline: labelStyle.Foreground(lipgloss.Color("3")),
		service.StatusError:   labelStyle.Foreground(lipgloss.Color("1")),
		service.StatusLocked:  labelStyle.Foreground(lipgloss.Color("8")),
	}
)
