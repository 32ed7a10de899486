package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formKind int

const (
	formRecord formKind = iota
	formProject
)

// form is a modal of labelled text inputs.
type form struct {
	kind   formKind
	title  string
	labels []string
	inputs []textinput.Model
	focus  int
}

func newForm(kind formKind, title string, fields ...[2]string) form {
	f := form{kind: kind, title: title}
	for _, field := range fields {
		ti := textinput.New()
		ti.Placeholder = field[1]
		ti.Prompt = "› "
		ti.CharLimit = 512
		ti.Width = 48
		f.labels = append(f.labels, field[0])
		f.inputs = append(f.inputs, ti)
	}
	return f
}

func newRecordForm() form {
	return newForm(formRecord, "Start recording",
		[2]string{"URL", "https://example.com"},
		[2]string{"Test case id", "login_flow"},
	)
}

func newProjectForm() form {
	return newForm(formProject, "New project",
		[2]string{"Project id", "shop"},
		[2]string{"Name", "Shop checkout"},
		[2]string{"Description", "optional"},
	)
}

// focusCmd focuses the current input.
func (f *form) focusCmd() tea.Cmd {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	if len(f.inputs) == 0 {
		return nil
	}
	return f.inputs[f.focus].Focus()
}

// cycle moves focus to the next (or previous) input.
func (f *form) cycle(back bool) tea.Cmd {
	n := len(f.inputs)
	if n == 0 {
		return nil
	}
	if back {
		f.focus = (f.focus + n - 1) % n
	} else {
		f.focus = (f.focus + 1) % n
	}
	return f.focusCmd()
}

func (f form) update(msg tea.Msg) (form, tea.Cmd) {
	if len(f.inputs) == 0 {
		return f, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f form) values() []string {
	out := make([]string, len(f.inputs))
	for i, ti := range f.inputs {
		out[i] = strings.TrimSpace(ti.Value())
	}
	return out
}

func (f form) view() string {
	var b strings.Builder
	b.WriteString(panelTitle.Render(f.title) + "\n\n")
	for i, ti := range f.inputs {
		label := keyDescStyle.Render(f.labels[i])
		if i == f.focus {
			label = labelStyle.Render(f.labels[i])
		}
		b.WriteString(label + "\n" + ti.View() + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
