package ui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/idlab-discover/fairleak/internal/apperr"
)

// SelectorItem is a configuration offered by the selector.
type SelectorItem struct {
	Name        string
	Description string
}

type configItem struct {
	name     string
	desc     string
	selected bool
}

func (i configItem) Title() string {
	if i.selected {
		return Success.Render("[✓] ") + i.name
	}
	return Dim.Render("[ ] ") + i.name
}

func (i configItem) Description() string { return Dim.Render(i.desc) }

func (i configItem) FilterValue() string { return i.name }

// configSelectorModel is the Bubble Tea model for picking configurations.
type configSelectorModel struct {
	list      list.Model
	items     []configItem
	quitting  bool
	confirmed bool
}

// NewConfigSelector creates a selector with every item preselected.
func NewConfigSelector(title string, items []SelectorItem) *configSelectorModel {
	cfgItems := make([]configItem, len(items))
	for i, it := range items {
		cfgItems[i] = configItem{name: it.Name, desc: it.Description, selected: true}
	}

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorHighlight).
		BorderForeground(ColorPrimary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorTextDim).
		BorderForeground(ColorPrimary)

	l := list.New(toListItems(cfgItems), delegate, 76, 20)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)
	l.Styles.Title = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true).
		Padding(0, 0, 1, 0)

	return &configSelectorModel{list: l, items: cfgItems}
}

func toListItems(items []configItem) []list.Item {
	out := make([]list.Item, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// Init initializes the model
func (m *configSelectorModel) Init() tea.Cmd { return nil }

// Update handles messages
func (m *configSelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			m.confirmed = true
			m.quitting = true
			return m, tea.Quit
		case "s", "space", " ":
			m.toggle(m.list.Index())
			return m, nil
		case "a":
			all := !m.allSelected()
			for i := range m.items {
				m.items[i].selected = all
			}
			m.list.SetItems(toListItems(m.items))
			return m, nil
		}
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *configSelectorModel) toggle(idx int) {
	if idx < 0 || idx >= len(m.items) {
		return
	}
	m.items[idx].selected = !m.items[idx].selected
	m.list.SetItems(toListItems(m.items))
}

func (m *configSelectorModel) allSelected() bool {
	for _, it := range m.items {
		if !it.selected {
			return false
		}
	}
	return true
}

// View renders the model
func (m *configSelectorModel) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	var b strings.Builder
	b.WriteString(m.list.View())
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("%s %s\n", Success.Render("Selected:"),
		Highlight.Render(fmt.Sprintf("%d of %d configuration(s)", len(m.Selected()), len(m.items)))))
	b.WriteString(Dim.Render("s/space: toggle · a: toggle all · ↑/↓: navigate · enter: run · esc: cancel"))
	return tea.NewView(b.String())
}

// Selected returns the names of the selected items in their original order.
func (m *configSelectorModel) Selected() []string {
	var out []string
	for _, it := range m.items {
		if it.selected {
			out = append(out, it.name)
		}
	}
	return out
}

// WasConfirmed returns true if the user confirmed the selection
func (m *configSelectorModel) WasConfirmed() bool { return m.confirmed }

// RunConfigSelector runs the selector and returns the chosen names.
// Cancelling, or confirming an empty selection, returns apperr.ErrCancelled.
func RunConfigSelector(title string, items []SelectorItem) ([]string, error) {
	p := tea.NewProgram(NewConfigSelector(title, items))
	m, err := p.Run()
	if err != nil {
		return nil, err
	}
	model := m.(*configSelectorModel)
	if !model.WasConfirmed() || len(model.Selected()) == 0 {
		return nil, apperr.ErrCancelled
	}
	return model.Selected(), nil
}
