package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Context identifies which part of the UI has focus, for help and footers.
type Context int

const (
	ContextTree Context = iota
	ContextDetail
	ContextRootPicker
	ContextForm
	ContextConfirm
)

func (c Context) String() string {
	switch c {
	case ContextTree:
		return "tree"
	case ContextDetail:
		return "detail"
	case ContextRootPicker:
		return "root-picker"
	case ContextForm:
		return "form"
	case ContextConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// ContextHelpContent contains compact help content for each context.
// Content should fit on one screen (~20 lines) without scrolling.
var ContextHelpContent = map[Context]string{
	ContextTree:       contextHelpTree,
	ContextDetail:     contextHelpDetail,
	ContextRootPicker: contextHelpRootPicker,
	ContextForm:       contextHelpForm,
	ContextConfirm:    contextHelpForm,
}

// GetContextHelp returns the help content for a given context.
// Falls back to generic help if the context has no specific content.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpGeneric
}

// RenderContextHelp renders the help modal centered in width x height.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	content := GetContextHelp(ctx)

	r := theme.Renderer

	modalWidth := 60
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().
		Bold(true).
		Foreground(theme.Primary)

	contentStyle := r.NewStyle().
		Foreground(theme.Subtext)

	footerStyle := r.NewStyle().
		Foreground(theme.Muted).
		Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n\n")
	b.WriteString(contentStyle.Render(content))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("? or Esc to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modalStyle.Render(b.String()))
}

const contextHelpTree = `## Menu Tree

**Navigation**
  j/k       Move up/down
  g/G       Jump to top/bottom
  h/l       Collapse / expand (or parent / child)
  Ctrl+d/u  Page down/up
  Enter     Toggle expand
  E/C       Expand / collapse all

**Editing**
  a         New child of selected menu
  A         New root menu
  e         Edit selected menu
  d         Delete selected menu
  x         Cut (mark for move)
  p / P     Paste under selected / at root
  K/J       Move up/down among siblings

**Other**
  f         Filter by root menu
  r         Refresh
  y         Copy menu ID
  Tab       Focus detail panel
  q         Quit`

const contextHelpDetail = `## Detail Panel

  j/k       Scroll
  Ctrl+d/u  Page down/up
  Tab/Esc   Back to tree
  q         Quit`

const contextHelpRootPicker = `## Root Filter

  j/k       Move up/down
  /         Fuzzy filter by name or ID
  Enter     Apply
  Esc       Cancel

"All Root Menus" clears the filter.
Breadcrumbs always show the full path.`

const contextHelpForm = `## Form

  Tab       Next field
  Shift+Tab Previous field
  Enter     Confirm
  Esc       Cancel

Name is required.
Sort order must be a whole number.`

const contextHelpGeneric = `## Menu Admin

  ?         Toggle this help
  q         Quit`
