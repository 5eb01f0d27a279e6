// Package ui holds terminal output styling and the password prompt.
package ui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	ColorSuccess = lipgloss.Color("#00D26A") // green  — success
	ColorWarning = lipgloss.Color("#FFB800") // yellow — warning
	ColorError   = lipgloss.Color("#FF4444") // red    — error
	ColorAddress = lipgloss.Color("#00B4D8") // cyan   — addresses, hashes
	ColorValue   = lipgloss.Color("#FFFFFF") // white bold — values
	ColorMeta    = lipgloss.Color("#555555") // dim gray  — metadata, hints
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
)

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Addr formats an address or hash.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// Hint formats a follow-up suggestion.
func Hint(m string) string { return StyleMeta.Render("  " + m) }
