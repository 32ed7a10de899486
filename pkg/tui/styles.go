// Package tui is the interactive terminal front end of the workbench. The
// workbench pushes display updates through a Sink; the Bubble Tea model
// turns key presses into workbench actions.
package tui

import "github.com/charmbracelet/lipgloss"

// Status glyphs. They carry meaning without relying on color alone.
const (
	GlyphIdle      = "○"
	GlyphCurrent   = "▸"
	GlyphPassed    = "✓"
	GlyphFailed    = "✗"
	GlyphRecording = "●"
)

var (
	colorGreen  = lipgloss.Color("42")
	colorRed    = lipgloss.Color("196")
	colorYellow = lipgloss.Color("214")
	colorBlue   = lipgloss.Color("39")
	colorCyan   = lipgloss.Color("51")
	colorDim    = lipgloss.Color("240")
	colorWhite  = lipgloss.Color("255")
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorCyan).
	Padding(0, 1)

var recordingBadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("0")).
	Background(colorRed).
	Padding(0, 1)

// --- List panels ---

var (
	panelBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim)

	panelFocused = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCyan)

	panelTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	itemNormal = lipgloss.NewStyle().
			Foreground(colorWhite)

	itemCurrent = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorYellow)

	itemDim = lipgloss.NewStyle().
			Foreground(colorDim)
)

// --- Results ---

var (
	passedStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	failedStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	runningStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)
)

// --- Key bar ---

var (
	keyStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	keyDescStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)

var overlayStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(colorCyan).
	Padding(1, 2)

var noticeStyle = lipgloss.NewStyle().
	Foreground(colorGreen)

var errorStyle = lipgloss.NewStyle().
	Foreground(colorRed).
	Bold(true)

var spinnerStyle = lipgloss.NewStyle().
	Foreground(colorYellow)
