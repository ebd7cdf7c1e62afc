package tree

import "github.com/vanderheijden86/menuadmin/pkg/model"

// Mode says whether a parent list is for creating a node or editing one.
type Mode int

const (
	ModeEdit Mode = iota
	ModeCreate
)

func (m Mode) String() string {
	if m == ModeCreate {
		return "create"
	}
	return "edit"
}

// Walk visits every node in pre-order with its depth. Returning false from
// fn stops the walk.
func Walk(forest []model.MenuNode, fn func(node *model.MenuNode, depth int) bool) {
	stack := pushChildren(nil, forest, 0)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(f.node, f.depth) {
			return
		}
		stack = pushChildren(stack, f.node.Children, f.depth+1)
	}
}

// Find returns the first node in pre-order with the given ID, or nil.
// The returned pointer aliases the forest; treat it as read-only.
func Find(forest []model.MenuNode, id string) *model.MenuNode {
	if id == "" {
		return nil
	}
	var found *model.MenuNode
	Walk(forest, func(node *model.MenuNode, _ int) bool {
		if node.ID == id {
			found = node
			return false
		}
		return true
	})
	return found
}

// Count returns the total number of nodes in the forest.
func Count(forest []model.MenuNode) int {
	n := 0
	Walk(forest, func(*model.MenuNode, int) bool {
		n++
		return true
	})
	return n
}

// Descendants returns the IDs strictly below the node with the given ID.
// The map is empty when the node is unknown or a leaf.
func Descendants(forest []model.MenuNode, id string) map[string]bool {
	out := make(map[string]bool)
	node := Find(forest, id)
	if node == nil {
		return out
	}
	Walk(node.Children, func(n *model.MenuNode, _ int) bool {
		out[n.ID] = true
		return true
	})
	return out
}

// ParentOptions builds the "choose parent" list for a form.
//
// Create mode returns every node. Edit mode drops the edited node itself so
// it cannot be picked as its own parent. Its descendants remain selectable
// unless excludeSubtree is set; picking one would create a cycle, and only a
// server-side check prevents that by default.
func ParentOptions(forest []model.MenuNode, mode Mode, nodeID string, excludeSubtree bool) []FlatOption {
	options := Flatten(forest)
	if mode != ModeEdit || nodeID == "" {
		return options
	}

	var below map[string]bool
	if excludeSubtree {
		below = Descendants(forest, nodeID)
	}

	filtered := make([]FlatOption, 0, len(options))
	for _, opt := range options {
		if opt.ID == nodeID || below[opt.ID] {
			continue
		}
		filtered = append(filtered, opt)
	}
	return filtered
}

// FilterRoot narrows the forest to a single root. An empty rootID means
// "all roots"; an unknown rootID yields an empty forest.
func FilterRoot(forest []model.MenuNode, rootID string) []model.MenuNode {
	if rootID == "" {
		return forest
	}
	for i := range forest {
		if forest[i].ID == rootID {
			return forest[i : i+1 : i+1]
		}
	}
	return []model.MenuNode{}
}

// Siblings returns the sibling list containing id and the index of id in it.
// Roots are siblings of each other. ok is false when id is unknown.
func Siblings(forest []model.MenuNode, id string) (siblings []model.MenuNode, index int, ok bool) {
	for i := range forest {
		if forest[i].ID == id {
			return forest, i, true
		}
	}
	var parent *model.MenuNode
	Walk(forest, func(node *model.MenuNode, _ int) bool {
		for i := range node.Children {
			if node.Children[i].ID == id {
				parent = node
				index = i
				return false
			}
		}
		return true
	})
	if parent == nil {
		return nil, 0, false
	}
	return parent.Children, index, true
}
