package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanderheijden86/menuadmin/pkg/analysis"
	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

// maxMermaidLabel caps node labels in the diagram.
const maxMermaidLabel = 30

// GenerateMarkdown creates a markdown report of the menu forest: a summary,
// an indented outline, and a mermaid diagram of parent/child edges.
func GenerateMarkdown(forest []model.MenuNode, title string) (string, error) {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", time.Now().Format(time.RFC1123)))

	stats := analysis.ComputeStats(forest)
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Menus**: %d\n", stats.Nodes))
	sb.WriteString(fmt.Sprintf("- **Root menus**: %d\n", stats.Roots))
	sb.WriteString(fmt.Sprintf("- **Leaves**: %d\n", stats.Leaves))
	sb.WriteString(fmt.Sprintf("- **Max depth**: %d\n", stats.MaxDepth))
	if len(stats.DuplicateIDs) > 0 {
		sb.WriteString(fmt.Sprintf("- **Duplicate IDs**: %s\n", strings.Join(stats.DuplicateIDs, ", ")))
	}
	sb.WriteString("\n")

	sb.WriteString("## Outline\n\n")
	if stats.Nodes == 0 {
		sb.WriteString("_No menus._\n")
	}
	tree.Walk(forest, func(node *model.MenuNode, depth int) bool {
		sb.WriteString(fmt.Sprintf("%s- **%s** (`%s`)", strings.Repeat("  ", depth), node.Name, node.ID))
		if node.SortOrder != nil {
			sb.WriteString(fmt.Sprintf(" · order %d", *node.SortOrder))
		}
		sb.WriteString("\n")
		return true
	})
	sb.WriteString("\n---\n\n")

	// Hierarchy (Mermaid). Node keys are positional so arbitrary ids are safe.
	sb.WriteString("## Hierarchy\n\n")
	sb.WriteString("```mermaid\ngraph TD\n")
	if stats.Nodes == 0 {
		sb.WriteString("    NoMenus[No Menus]\n")
	} else {
		writeMermaid(&sb, forest)
	}
	sb.WriteString("```\n")

	return sb.String(), nil
}

func writeMermaid(sb *strings.Builder, forest []model.MenuNode) {
	count := 0
	var parents []string // parents[d] is the key of the most recent node at depth d

	tree.Walk(forest, func(node *model.MenuNode, depth int) bool {
		key := fmt.Sprintf("m%d", count)
		count++
		sb.WriteString(fmt.Sprintf("    %s[\"%s\"]\n", key, mermaidLabel(node.Name)))

		parents = append(parents[:depth], key)
		if depth > 0 {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", parents[depth-1], key))
		}
		return true
	})
}

// mermaidLabel sanitizes a name for use inside a quoted mermaid label.
func mermaidLabel(name string) string {
	safe := strings.ReplaceAll(name, "\"", "'")
	safe = strings.NewReplacer("[", "", "]", "", "(", "", ")", "", "\n", " ").Replace(safe)
	if r := []rune(safe); len(r) > maxMermaidLabel {
		safe = string(r[:maxMermaidLabel-3]) + "..."
	}
	return safe
}

// SaveMarkdownToFile writes the generated markdown to a file
func SaveMarkdownToFile(forest []model.MenuNode, filename string) error {
	content, err := GenerateMarkdown(forest, "Menu Export")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0644)
}
