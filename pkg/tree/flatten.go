// Package tree holds the pure walkers over a menu forest snapshot: the
// flattener that feeds parent dropdowns, the path finder behind breadcrumbs,
// and the builder that nests a flat API listing.
//
// None of these functions mutate their input. Flatten, FindPath and Walk use
// an explicit stack so very deep menus cannot exhaust the goroutine stack.
// The forest must be acyclic; a cyclic children relation is out of contract.
package tree

import (
	"strings"

	"github.com/vanderheijden86/menuadmin/pkg/model"
)

const (
	// IndentUnit (two non-breaking spaces) is repeated depth*2 times in
	// front of a nested label.
	IndentUnit = "\u00a0\u00a0"
	// BranchMarker precedes the name of every non-root label.
	BranchMarker = "└ "
)

// FlatOption is a depth-annotated, display-labeled projection of a node,
// used to populate selection controls.
type FlatOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Depth int    `json:"depth"`
	Label string `json:"label"`
}

// frame is one pending node on an explicit traversal stack.
type frame struct {
	node  *model.MenuNode
	depth int
}

// Flatten converts a nested forest into a pre-order sequence of options.
// Depth is relative to the given roots, so flattening a subtree yields
// depth 0 for the subtree's own roots. Nil or empty input yields an empty,
// non-nil slice.
func Flatten(nodes []model.MenuNode) []FlatOption {
	out := make([]FlatOption, 0, len(nodes))
	if len(nodes) == 0 {
		return out
	}

	stack := pushChildren(nil, nodes, 0)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		out = append(out, FlatOption{
			ID:    f.node.ID,
			Name:  f.node.Name,
			Depth: f.depth,
			Label: Label(f.node.Name, f.depth),
		})
		stack = pushChildren(stack, f.node.Children, f.depth+1)
	}
	return out
}

// Label formats a node name for a dropdown at the given depth.
func Label(name string, depth int) string {
	if depth <= 0 {
		return name
	}
	return strings.Repeat(IndentUnit, depth*2) + BranchMarker + name
}

// pushChildren pushes nodes in reverse so the first child is popped first.
func pushChildren(stack []frame, nodes []model.MenuNode, depth int) []frame {
	for i := len(nodes) - 1; i >= 0; i-- {
		stack = append(stack, frame{node: &nodes[i], depth: depth})
	}
	return stack
}
