// Package ui renders chat state to a line-oriented terminal.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorMuted   = lipgloss.Color("#6B7C85")
	colorError   = lipgloss.Color("#E74C3C")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
)

// Styles are the lipgloss styles shared by the renderers
var Styles = struct {
	Prompt   lipgloss.Style
	Status   lipgloss.Style
	Heading  lipgloss.Style
	Muted    lipgloss.Style
	Link     lipgloss.Style
	Error    lipgloss.Style
	StepDone lipgloss.Style
	StepOpen lipgloss.Style
	StepFail lipgloss.Style
}{
	Prompt:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Status:   lipgloss.NewStyle().Italic(true).Foreground(colorMuted),
	Heading:  lipgloss.NewStyle().Bold(true),
	Muted:    lipgloss.NewStyle().Foreground(colorMuted),
	Link:     lipgloss.NewStyle().Underline(true).Foreground(colorAccent),
	Error:    lipgloss.NewStyle().Bold(true).Foreground(colorError),
	StepDone: lipgloss.NewStyle().Foreground(colorSuccess),
	StepOpen: lipgloss.NewStyle().Foreground(colorWarning),
	StepFail: lipgloss.NewStyle().Foreground(colorError),
}
