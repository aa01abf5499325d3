package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tonegen/audio"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	deviceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func renderDeviceList(backend string, names []string, active string, canEnumerate bool) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Output devices (%s)", backend)))
	b.WriteString("\n")

	if !canEnumerate {
		b.WriteString(dimStyle.Render("  backend cannot list devices"))
		b.WriteString("\n")
		return b.String()
	}
	if len(names) == 0 {
		b.WriteString(dimStyle.Render("  none found"))
		b.WriteString("\n")
		return b.String()
	}

	for _, name := range names {
		line := "    " + deviceStyle.Render(name)
		if name == active {
			line = activeStyle.Render("  ▶ " + name)
		}
		if audio.IsBluetooth(name) {
			line += " " + warnStyle.Render("[BT]")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
