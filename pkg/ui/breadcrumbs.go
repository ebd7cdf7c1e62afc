package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

// BreadcrumbSeparator sits between path segments.
const BreadcrumbSeparator = " › "

// RenderBreadcrumbs renders the root-to-node path of id inside forest.
// The last segment is emphasised. Returns "" when the path is empty so the
// caller can drop the line entirely.
func RenderBreadcrumbs(forest []model.MenuNode, id string, theme Theme, width int) string {
	path := tree.FindPath(forest, id)
	if len(path) == 0 {
		return ""
	}

	r := theme.Renderer
	sepStyle := r.NewStyle().Foreground(theme.Muted)
	crumbStyle := r.NewStyle().Foreground(theme.Subtext)
	lastStyle := r.NewStyle().Foreground(theme.Primary).Bold(true)

	// Long paths collapse from the left until they fit.
	names := make([]string, len(path))
	for i, p := range path {
		names[i] = p.Name
	}
	elided := false
	if width > 0 {
		for len(names) > 1 && plainWidth(names, elided) > width {
			names = names[1:]
			elided = true
		}
	}

	parts := make([]string, 0, len(names)+1)
	if elided {
		parts = append(parts, crumbStyle.Render("…"))
	}
	for i, name := range names {
		if i == len(names)-1 {
			if width > 0 {
				name = truncateName(name, width)
			}
			parts = append(parts, lastStyle.Render(name))
			continue
		}
		parts = append(parts, crumbStyle.Render(name))
	}
	return strings.Join(parts, sepStyle.Render(BreadcrumbSeparator))
}

func plainWidth(names []string, elided bool) int {
	s := strings.Join(names, BreadcrumbSeparator)
	if elided {
		s = "…" + BreadcrumbSeparator + s
	}
	return runewidth.StringWidth(s)
}
