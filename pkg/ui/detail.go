package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

// DetailModel renders the selected menu as markdown in a scrollable viewport.
type DetailModel struct {
	viewport viewport.Model
	renderer *glamour.TermRenderer
	width    int
	shownID  string
	hashSeen string
}

// NewDetailModel creates an empty detail panel.
func NewDetailModel() DetailModel {
	return DetailModel{viewport: viewport.New(0, 0)}
}

// SetSize resizes the viewport and rebuilds the renderer for the new wrap width.
func (d *DetailModel) SetSize(width, height int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	d.viewport.Width = width
	d.viewport.Height = height
	if width != d.width || d.renderer == nil {
		d.width = width
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			d.renderer = renderer
		}
		d.shownID = ""
	}
}

// Update forwards scroll keys to the viewport.
func (d DetailModel) Update(msg tea.Msg) (DetailModel, tea.Cmd) {
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd
}

// View renders the viewport.
func (d DetailModel) View() string {
	return d.viewport.View()
}

// Show renders node (looked up in the full forest for its path) into the
// viewport. Re-rendering the same node for the same data is skipped.
func (d *DetailModel) Show(forest []model.MenuNode, node *model.MenuNode, dataHash string) {
	id := ""
	if node != nil {
		id = node.ID
	}
	if id == d.shownID && dataHash == d.hashSeen && id != "" {
		return
	}
	d.shownID = id
	d.hashSeen = dataHash

	if node == nil {
		d.viewport.SetContent("No menu selected")
		return
	}

	md := DetailMarkdown(forest, node)
	if d.renderer == nil {
		d.viewport.SetContent(md)
		return
	}
	rendered, err := d.renderer.Render(md)
	if err != nil {
		d.viewport.SetContent(fmt.Sprintf("Error rendering markdown: %v", err))
		return
	}
	d.viewport.SetContent(rendered)
	d.viewport.GotoTop()
}

// DetailMarkdown builds the markdown document for node.
func DetailMarkdown(forest []model.MenuNode, node *model.MenuNode) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(node.Name)))

	parent := "_(root)_"
	if id := node.ParentIDOrEmpty(); id != "" {
		parent = fmt.Sprintf("`%s`", id)
		if p := tree.Find(forest, id); p != nil {
			parent = fmt.Sprintf("%s (`%s`)", escapeMarkdown(p.Name), id)
		}
	}
	sortOrder := "_unset_"
	if node.SortOrder != nil {
		sortOrder = fmt.Sprintf("%d", *node.SortOrder)
	}

	sb.WriteString("| Field | Value |\n|---|---|\n")
	sb.WriteString(fmt.Sprintf("| ID | `%s` |\n", node.ID))
	sb.WriteString(fmt.Sprintf("| Parent | %s |\n", parent))
	sb.WriteString(fmt.Sprintf("| Sort order | %s |\n", sortOrder))
	sb.WriteString(fmt.Sprintf("| Children | %d |\n", len(node.Children)))
	sb.WriteString(fmt.Sprintf("| Descendants | %d |\n\n", tree.Count(node.Children)))

	if path := tree.FindPath(forest, node.ID); len(path) > 0 {
		sb.WriteString("### Path\n")
		sb.WriteString(escapeMarkdown(tree.FormatPath(path, BreadcrumbSeparator)) + "\n\n")
	}

	if len(node.Children) > 0 {
		sb.WriteString("### Children\n")
		for _, child := range node.Children {
			sb.WriteString(fmt.Sprintf("- %s (`%s`)\n", escapeMarkdown(child.Name), child.ID))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"|", `\|`,
	"[", `\[`,
	"]", `\]`,
	"#", `\#`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
