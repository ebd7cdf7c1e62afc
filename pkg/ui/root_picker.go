package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

// AllRootsLabel is the picker entry that clears the root filter.
const AllRootsLabel = "All Root Menus"

// RootEntry is one choice in the root picker. An empty ID means all roots.
type RootEntry struct {
	ID         string
	Name       string
	Descendant int // number of menus under this root
}

// RootSelectedMsg is sent when the user picks a root. Empty RootID clears the filter.
type RootSelectedMsg struct {
	RootID string
}

// RootPickerClosedMsg is sent when the picker is dismissed without a choice.
type RootPickerClosedMsg struct{}

// RootPickerModel is a modal for narrowing the tree to a single root menu.
type RootPickerModel struct {
	entries     []RootEntry
	filtered    []int // indices into entries
	cursor      int
	current     string
	width       int
	height      int
	filterInput textinput.Model
	filtering   bool
	theme       Theme
}

// NewRootPicker lists "All Root Menus" followed by every root of forest.
// current is the active filter; the cursor starts on it.
func NewRootPicker(forest []model.MenuNode, current string, theme Theme) RootPickerModel {
	ti := textinput.New()
	ti.Placeholder = "type to filter..."
	ti.CharLimit = 50
	ti.Width = 30

	entries := []RootEntry{{Name: AllRootsLabel, Descendant: tree.Count(forest)}}
	for i := range forest {
		entries = append(entries, RootEntry{
			ID:         forest[i].ID,
			Name:       forest[i].Name,
			Descendant: tree.Count(forest[i].Children),
		})
	}

	m := RootPickerModel{
		entries:     entries,
		current:     current,
		filterInput: ti,
		theme:       theme,
	}
	m.applyFilter()
	for i, idx := range m.filtered {
		if entries[idx].ID == current {
			m.cursor = i
			break
		}
	}
	return m
}

// SetSize updates the picker dimensions.
func (m *RootPickerModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Update handles keyboard input for the root picker.
func (m RootPickerModel) Update(msg tea.Msg) (RootPickerModel, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.filtering {
		return m.updateFiltering(keyMsg)
	}
	return m.updateNormal(keyMsg)
}

func (m RootPickerModel) updateNormal(msg tea.KeyMsg) (RootPickerModel, tea.Cmd) {
	switch msg.String() {
	case "/":
		m.filtering = true
		m.filterInput.SetValue("")
		m.filterInput.Focus()
	case "j", "down":
		m.MoveDown()
	case "k", "up":
		m.MoveUp()
	case "enter":
		return m, m.selectCmd()
	case "esc", "q":
		return m, func() tea.Msg { return RootPickerClosedMsg{} }
	}
	return m, nil
}

func (m RootPickerModel) updateFiltering(msg tea.KeyMsg) (RootPickerModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.applyFilter()
		return m, nil
	case "enter":
		m.filtering = false
		m.filterInput.Blur()
		return m, m.selectCmd()
	case "up":
		m.MoveUp()
		return m, nil
	case "down":
		m.MoveDown()
		return m, nil
	default:
		var cmd tea.Cmd
		m.filterInput, cmd = m.filterInput.Update(msg)
		m.applyFilter()
		return m, cmd
	}
}

func (m RootPickerModel) selectCmd() tea.Cmd {
	entry := m.SelectedEntry()
	if entry == nil {
		return nil
	}
	id := entry.ID
	return func() tea.Msg { return RootSelectedMsg{RootID: id} }
}

// MoveUp moves selection up
func (m *RootPickerModel) MoveUp() {
	if m.cursor > 0 {
		m.cursor--
	}
}

// MoveDown moves selection down
func (m *RootPickerModel) MoveDown() {
	if m.cursor < len(m.filtered)-1 {
		m.cursor++
	}
}

// applyFilter updates the filtered indices from the filter input. The
// "All Root Menus" entry only shows when the query is empty.
func (m *RootPickerModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.filterInput.Value()))
	if query == "" {
		m.filtered = make([]int, len(m.entries))
		for i := range m.entries {
			m.filtered[i] = i
		}
		m.clampCursor()
		return
	}

	type scored struct {
		index int
		score int
	}
	var matches []scored
	for i, entry := range m.entries {
		if entry.ID == "" {
			continue
		}
		best := fuzzyScore(strings.ToLower(entry.Name), query)
		if s := fuzzyScore(strings.ToLower(entry.ID), query); s > best {
			best = s
		}
		if best > 0 {
			matches = append(matches, scored{i, best})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	m.filtered = make([]int, len(matches))
	for i, match := range matches {
		m.filtered[i] = match.index
	}
	m.clampCursor()
}

func (m *RootPickerModel) clampCursor() {
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
}

// fuzzyScore rates how well query matches text as an in-order subsequence.
// 0 means no match. Prefix and contiguous matches score higher.
func fuzzyScore(text, query string) int {
	if query == "" {
		return 1
	}
	if strings.HasPrefix(text, query) {
		return 1000 - len(text)
	}
	if idx := strings.Index(text, query); idx >= 0 {
		return 500 - idx
	}

	score := 0
	qi := 0
	qr := []rune(query)
	prevMatched := false
	for _, r := range text {
		if qi < len(qr) && r == qr[qi] {
			score += 10
			if prevMatched {
				score += 5
			}
			qi++
			prevMatched = true
		} else {
			prevMatched = false
		}
	}
	if qi < len(qr) {
		return 0
	}
	return score
}

// View renders the root picker overlay
func (m *RootPickerModel) View() string {
	if m.width == 0 {
		m.width = 60
	}
	if m.height == 0 {
		m.height = 20
	}

	t := m.theme

	boxWidth := 44
	if m.width < boxWidth+10 {
		boxWidth = m.width - 10
	}
	if boxWidth < 25 {
		boxWidth = 25
	}

	var lines []string

	titleStyle := t.Renderer.NewStyle().
		Foreground(t.Primary).
		Bold(true).
		MarginBottom(1)
	lines = append(lines, titleStyle.Render("Filter by Root Menu"))
	lines = append(lines, "")

	if m.filtering {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Primary).Render("/ "+m.filterInput.View()))
		lines = append(lines, "")
	}

	if len(m.filtered) == 0 {
		lines = append(lines, t.Renderer.NewStyle().Foreground(t.Secondary).Italic(true).Render("No matching menus"))
	}
	for i, idx := range m.filtered {
		entry := m.entries[idx]
		isSelected := i == m.cursor

		itemStyle := t.Renderer.NewStyle()
		prefix := "  "
		if isSelected {
			itemStyle = itemStyle.Foreground(t.Primary).Bold(true)
			prefix = "> "
		} else {
			itemStyle = itemStyle.Foreground(t.Base.GetForeground())
		}

		suffix := t.Renderer.NewStyle().Foreground(t.Muted).Render(fmt.Sprintf(" (%d)", entry.Descendant))
		if entry.ID == m.current {
			suffix += " " + t.Renderer.NewStyle().Foreground(t.Secondary).Render("✓")
		}
		name := truncateName(entry.Name, boxWidth-12)
		lines = append(lines, itemStyle.Render(prefix+name)+suffix)
	}

	lines = append(lines, "")
	footerStyle := t.Renderer.NewStyle().
		Foreground(t.Secondary).
		Italic(true)
	lines = append(lines, footerStyle.Render("j/k: navigate | /: filter | enter: apply | esc: cancel"))

	boxStyle := t.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(1, 2).
		Width(boxWidth)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		boxStyle.Render(strings.Join(lines, "\n")),
	)
}

// Filtering returns whether the picker is in filter mode.
func (m *RootPickerModel) Filtering() bool {
	return m.filtering
}

// FilteredCount returns the number of entries matching the current filter.
func (m *RootPickerModel) FilteredCount() int {
	return len(m.filtered)
}

// SelectedEntry returns the highlighted entry, or nil if none.
func (m *RootPickerModel) SelectedEntry() *RootEntry {
	if len(m.filtered) == 0 || m.cursor >= len(m.filtered) {
		return nil
	}
	entry := m.entries[m.filtered[m.cursor]]
	return &entry
}
