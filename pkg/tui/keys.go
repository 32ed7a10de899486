package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds all TUI key bindings.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Focus    key.Binding
	Open     key.Binding
	Execute  key.Binding
	ExecAll  key.Binding
	Record   key.Binding
	New      key.Binding
	Delete   key.Binding
	Reload   key.Binding
	Confirm  key.Binding
	Cancel   key.Binding
	NextItem key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Focus: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Execute: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "execute"),
	),
	ExecAll: key.NewBinding(
		key.WithKeys("X"),
		key.WithHelp("X", "execute project"),
	),
	Record: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "record/stop"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new project"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Reload: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "reload"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y", "enter"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc", "n"),
		key.WithHelp("esc", "cancel"),
	),
	NextItem: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab", "next field"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func hint(k, desc string) string {
	return keyStyle.Render(k) + keyDescStyle.Render(":"+desc)
}

// keyBarText renders the context-sensitive key hint string.
func keyBarText(o overlayKind, recording bool) string {
	switch o {
	case overlayForm:
		return hint("tab", "next field") + "  " + hint("enter", "submit") + "  " + hint("esc", "cancel")
	case overlayConfirm:
		return hint("y", "confirm") + "  " + hint("n/esc", "cancel")
	case overlayScript:
		return hint("↑↓", "scroll") + "  " + hint("esc", "close")
	}
	record := hint("r", "record")
	if recording {
		record = hint("r", "stop recording")
	}
	return hint("tab", "pane") + "  " +
		hint("enter", "open") + "  " +
		hint("x", "execute") + "  " +
		hint("X", "execute project") + "  " +
		record + "  " +
		hint("n", "new project") + "  " +
		hint("d", "delete") + "  " +
		hint("q", "quit")
}
