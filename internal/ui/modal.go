package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/setlist/internal/api"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// renderModalFrame centers body in a rounded box.
func renderModalFrame(theme Theme, width, height int, title, body, footer string) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")
	b.WriteString(body)
	if footer != "" {
		b.WriteString("\n\n")
		b.WriteString(styles.FaintText.Render(footer))
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(min(60, max(width-4, 20)))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)))
}

// addForm collects source refs to enqueue. Several comma-separated refs
// become one atomic batch; the title only applies to a single ref.
type addForm struct {
	inputs    [2]textinput.Model
	focus     int
	submitted bool
}

func newAddForm() *addForm {
	refs := textinput.New()
	refs.Placeholder = "source ref (comma-separated for several)"
	refs.CharLimit = 2000
	title := textinput.New()
	title.Placeholder = "title (optional)"
	title.CharLimit = 200
	return &addForm{inputs: [2]textinput.Model{refs, title}}
}

// Focus focuses the first field.
func (f *addForm) Focus() tea.Cmd {
	f.focus = 0
	f.inputs[1].Blur()
	return f.inputs[0].Focus()
}

func (f *addForm) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.Escape):
			return f, nil, true
		case key.Matches(k, keys.Confirm):
			f.submitted = true
			return f, nil, true
		case key.Matches(k, keys.Next):
			f.inputs[f.focus].Blur()
			f.focus = (f.focus + 1) % len(f.inputs)
			return f, f.inputs[f.focus].Focus(), false
		}
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd, false
}

func (f *addForm) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	body := styles.MutedText.Render("Source") + "\n" + f.inputs[0].View() + "\n\n" +
		styles.MutedText.Render("Title") + "\n" + f.inputs[1].View()
	return renderModalFrame(theme, width, height, "Add to queue", body, "enter add · tab switch field · esc cancel")
}

// request builds the add mutation, or reports false when cancelled or empty.
func (f *addForm) request() (api.MutationRequest, bool) {
	if !f.submitted {
		return api.MutationRequest{}, false
	}
	var refs []string
	for _, part := range strings.Split(f.inputs[0].Value(), ",") {
		if ref := strings.TrimSpace(part); ref != "" {
			refs = append(refs, ref)
		}
	}
	switch len(refs) {
	case 0:
		return api.MutationRequest{}, false
	case 1:
		return api.MutationRequest{Op: api.OpAdd, Entry: &api.EntryInput{
			Title:     strings.TrimSpace(f.inputs[1].Value()),
			SourceRef: refs[0],
		}}, true
	}
	entries := make([]api.EntryInput, len(refs))
	for i, ref := range refs {
		entries[i] = api.EntryInput{SourceRef: ref}
	}
	return api.MutationRequest{Op: api.OpAddBatch, Entries: entries}, true
}

// contextPicker lists known channel contexts and accepts a typed key.
type contextPicker struct {
	input     textinput.Model
	current   string
	contexts  []string
	err       error
	cursor    int
	submitted bool
}

func newContextPicker(current string) *contextPicker {
	ti := textinput.New()
	ti.Placeholder = "guild_channel"
	ti.CharLimit = 200
	return &contextPicker{input: ti, current: current, cursor: -1}
}

// Focus focuses the key input.
func (p *contextPicker) Focus() tea.Cmd {
	return p.input.Focus()
}

func (p *contextPicker) setContexts(keys []string, err error) {
	p.contexts = keys
	p.err = err
	p.cursor = -1
	for i, k := range keys {
		if k == p.current {
			p.cursor = i
		}
	}
}

func (p *contextPicker) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.Escape):
			return p, nil, true
		case key.Matches(k, keys.Confirm):
			p.submitted = true
			return p, nil, true
		case k.Type == tea.KeyDown:
			if len(p.contexts) > 0 {
				p.cursor = min(p.cursor+1, len(p.contexts)-1)
			}
			return p, nil, false
		case k.Type == tea.KeyUp:
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil, false
		}
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd, false
}

func (p *contextPicker) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.MutedText.Render("Channel key"))
	b.WriteString("\n")
	b.WriteString(p.input.View())
	b.WriteString("\n\n")
	switch {
	case p.err != nil:
		b.WriteString(styles.DangerText.Render("Could not list channels"))
	case len(p.contexts) == 0:
		b.WriteString(styles.FaintText.Render("No active channels"))
	default:
		for i, k := range p.contexts {
			line := "  " + k
			style := styles.Text
			if i == p.cursor {
				line = "› " + k
				style = styles.AccentText.Bold(true)
			}
			if k == p.current {
				line += " (current)"
			}
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}
	return renderModalFrame(theme, width, height, "Switch channel", strings.TrimRight(b.String(), "\n"),
		"enter select · ↑/↓ choose · esc cancel")
}

// chosen returns the selected key: typed text wins over the list.
func (p *contextPicker) chosen() string {
	if !p.submitted {
		return ""
	}
	if typed := strings.TrimSpace(p.input.Value()); typed != "" {
		return typed
	}
	if p.cursor >= 0 && p.cursor < len(p.contexts) {
		return p.contexts[p.cursor]
	}
	return ""
}
