package tree

import (
	"strings"

	"github.com/vanderheijden86/menuadmin/pkg/model"
)

// PathEntry is one breadcrumb segment.
type PathEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FindPath returns the chain of nodes from a root of forest down to and
// including the first node (in pre-order) whose ID equals targetID.
//
// The result is empty when forest is empty, targetID is empty, or nothing
// matches. Duplicate IDs are a data integrity violation upstream; the first
// pre-order match wins, and callers should not rely on anything more.
func FindPath(forest []model.MenuNode, targetID string) []PathEntry {
	if len(forest) == 0 || targetID == "" {
		return []PathEntry{}
	}

	// trail[:d] always holds the ancestors of the node popped at depth d.
	var trail []PathEntry
	stack := pushChildren(nil, forest, 0)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		trail = append(trail[:f.depth], PathEntry{ID: f.node.ID, Name: f.node.Name})
		if f.node.ID == targetID {
			path := make([]PathEntry, len(trail))
			copy(path, trail)
			return path
		}
		stack = pushChildren(stack, f.node.Children, f.depth+1)
	}
	return []PathEntry{}
}

// FormatPath joins breadcrumb names with sep ("A › B › C").
func FormatPath(path []PathEntry, sep string) string {
	names := make([]string, len(path))
	for i, p := range path {
		names[i] = p.Name
	}
	return strings.Join(names, sep)
}
