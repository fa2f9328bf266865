// Package ui renders CLI output: colors, the category tree and cache tables.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

var renderer = lipgloss.NewRenderer(os.Stdout)

var (
	colorAccent = lipgloss.Color("74")  // blue
	colorNote   = lipgloss.Color("250") // light gray
	colorMuted  = lipgloss.Color("245") // medium gray
	colorError  = lipgloss.Color("203") // red
	colorOK     = lipgloss.Color("114") // green

	accentStyle    = renderer.NewStyle().Foreground(colorAccent)
	mutedStyle     = renderer.NewStyle().Foreground(colorMuted)
	noteStyle      = renderer.NewStyle().Foreground(colorNote)
	errorStyle     = renderer.NewStyle().Foreground(colorError).Bold(true)
	okStyle        = renderer.NewStyle().Foreground(colorOK)
	directoryStyle = renderer.NewStyle().Foreground(colorAccent).Bold(true)
	headerStyle    = renderer.NewStyle().Bold(true).Underline(true)
)

// RenderAccent returns s in the accent (blue) color.
func RenderAccent(s string) string {
	return accentStyle.Render(s)
}

// RenderMuted returns s in the muted (gray) color.
func RenderMuted(s string) string {
	return mutedStyle.Render(s)
}

// RenderError returns s styled as an error.
func RenderError(s string) string {
	return errorStyle.Render(s)
}

// RenderOK returns s styled as a success.
func RenderOK(s string) string {
	return okStyle.Render(s)
}
