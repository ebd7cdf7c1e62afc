package tree

import (
	"log"
	"sort"

	"github.com/vanderheijden86/menuadmin/pkg/model"
)

// IsNested reports whether any node in the list already carries children,
// meaning the list is a forest rather than a flat listing.
func IsNested(nodes []model.MenuNode) bool {
	for i := range nodes {
		if len(nodes[i].Children) > 0 {
			return true
		}
	}
	return false
}

// Normalize returns nested input unchanged and assembles flat input with Build.
func Normalize(nodes []model.MenuNode) []model.MenuNode {
	if IsNested(nodes) {
		return nodes
	}
	return Build(nodes)
}

// Build assembles a nested forest from a flat listing using each node's
// ParentID. The input is not modified.
//
//   - Siblings are ordered by SortOrder, then by input order.
//   - A node whose parent is missing (or is itself) becomes a root rather
//     than disappearing.
//   - Parent cycles are broken: the first unreached node of a cycle, in
//     input order, is promoted to a root so every node appears exactly once.
//   - Only the first node with a given ID is kept.
func Build(flat []model.MenuNode) []model.MenuNode {
	if len(flat) == 0 {
		return []model.MenuNode{}
	}

	// Step 1: index by ID, dropping duplicates
	index := make(map[string]int, len(flat))
	var order []int
	for i := range flat {
		id := flat[i].ID
		if _, dup := index[id]; dup {
			log.Printf("warning: duplicate menu id %q ignored", id)
			continue
		}
		index[id] = i
		order = append(order, i)
	}

	// Step 2: parent -> children, collecting roots
	childrenOf := make(map[string][]int)
	var roots []int
	for _, i := range order {
		node := &flat[i]
		parentID := node.ParentIDOrEmpty()
		if _, ok := index[parentID]; !ok || parentID == node.ID {
			roots = append(roots, i)
			continue
		}
		childrenOf[parentID] = append(childrenOf[parentID], i)
	}

	sortBySortOrder(flat, roots)
	for _, kids := range childrenOf {
		sortBySortOrder(flat, kids)
	}

	// Step 3: build subtrees from the roots, then from any cycle leftovers
	visited := make(map[string]bool, len(order))
	forest := make([]model.MenuNode, 0, len(roots))
	for _, i := range roots {
		forest = append(forest, buildNode(flat, i, childrenOf, visited))
	}
	for _, i := range order {
		if !visited[flat[i].ID] {
			log.Printf("warning: menu %q is part of a parent cycle; shown as root", flat[i].ID)
			forest = append(forest, buildNode(flat, i, childrenOf, visited))
		}
	}
	return forest
}

// buildNode copies flat[i] and attaches its unvisited children.
func buildNode(flat []model.MenuNode, i int, childrenOf map[string][]int, visited map[string]bool) model.MenuNode {
	src := flat[i]
	visited[src.ID] = true

	node := src.Clone()
	node.Children = nil
	for _, c := range childrenOf[src.ID] {
		if visited[flat[c].ID] {
			continue
		}
		node.Children = append(node.Children, buildNode(flat, c, childrenOf, visited))
	}
	return node
}

func sortBySortOrder(flat []model.MenuNode, idx []int) {
	sort.SliceStable(idx, func(a, b int) bool {
		return flat[idx[a]].SortOrderOrZero() < flat[idx[b]].SortOrderOrZero()
	})
}
