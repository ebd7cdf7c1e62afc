package tree

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/menuadmin/pkg/model"
	"pgregory.net/rapid"
)

// genForest draws a random acyclic forest with unique IDs.
func genForest(t *rapid.T) []model.MenuNode {
	next := 0
	var gen func(depth int, parent string) []model.MenuNode
	gen = func(depth int, parent string) []model.MenuNode {
		maxKids := 4
		if depth >= 4 {
			maxKids = 0
		}
		n := rapid.IntRange(0, maxKids).Draw(t, "children")
		nodes := make([]model.MenuNode, n)
		for i := range nodes {
			next++
			id := fmt.Sprintf("m-%d", next)
			nodes[i] = model.MenuNode{
				ID:       id,
				Name:     rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,7}`).Draw(t, "name"),
				ParentID: model.StringPtr(parent),
			}
			nodes[i].Children = gen(depth+1, id)
		}
		return nodes
	}
	return gen(0, "")
}

// refPreOrder is a recursive reference traversal recording depth and parent.
func refPreOrder(nodes []model.MenuNode, depth int, parent string, out *[]refEntry) {
	for _, n := range nodes {
		*out = append(*out, refEntry{id: n.ID, name: n.Name, depth: depth, parent: parent})
		refPreOrder(n.Children, depth+1, n.ID, out)
	}
}

type refEntry struct {
	id, name, parent string
	depth            int
}

func TestFlattenProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		forest := genForest(t)
		snapshot := cloneForest(forest)

		var ref []refEntry
		refPreOrder(forest, 0, "", &ref)

		got := Flatten(forest)
		if len(got) != len(ref) {
			t.Fatalf("expected one option per node: %d vs %d", len(got), len(ref))
		}
		for i, opt := range got {
			if opt.ID != ref[i].id || opt.Depth != ref[i].depth || opt.Name != ref[i].name {
				t.Fatalf("option %d = %+v, want %+v", i, opt, ref[i])
			}
			prefix := strings.Repeat(IndentUnit, opt.Depth*2)
			if !strings.HasPrefix(opt.Label, prefix) {
				t.Fatalf("label %q missing indentation for depth %d", opt.Label, opt.Depth)
			}
			rest := strings.TrimPrefix(opt.Label, prefix)
			if opt.Depth > 0 {
				if rest != BranchMarker+opt.Name {
					t.Fatalf("label %q should end with marker and name", opt.Label)
				}
			} else if rest != opt.Name {
				t.Fatalf("root label %q should equal name %q", opt.Label, opt.Name)
			}
		}

		if !reflect.DeepEqual(forest, snapshot) {
			t.Fatal("Flatten mutated its input")
		}
	})
}

func TestFindPathProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		forest := genForest(t)
		snapshot := cloneForest(forest)

		var ref []refEntry
		refPreOrder(forest, 0, "", &ref)
		parentOf := make(map[string]string, len(ref))
		for _, e := range ref {
			parentOf[e.id] = e.parent
		}

		for _, e := range ref {
			path := FindPath(forest, e.id)
			if len(path) != e.depth+1 {
				t.Fatalf("path to %s has length %d, want %d", e.id, len(path), e.depth+1)
			}
			if path[len(path)-1].ID != e.id {
				t.Fatalf("path to %s ends at %s", e.id, path[len(path)-1].ID)
			}
			if parentOf[path[0].ID] != "" {
				t.Fatalf("path to %s does not start at a root", e.id)
			}
			for i := 1; i < len(path); i++ {
				if parentOf[path[i].ID] != path[i-1].ID {
					t.Fatalf("path %v breaks parent chain at %d", path, i)
				}
			}
		}

		if len(FindPath(forest, "absent")) != 0 {
			t.Fatal("expected empty path for unknown id")
		}
		if !reflect.DeepEqual(forest, snapshot) {
			t.Fatal("FindPath mutated its input")
		}
	})
}

// TestBuildRoundTrip verifies flattening to parentId links and rebuilding
// reproduces the forest.
func TestBuildRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		forest := genForest(t)

		var flat []model.MenuNode
		Walk(forest, func(node *model.MenuNode, _ int) bool {
			c := *node
			c.Children = nil
			flat = append(flat, c)
			return true
		})
		// Shuffle input order; sortOrder carries the sibling order.
		setSortOrders(flat, forest)
		perm := rapid.Permutation(flat).Draw(t, "perm")

		rebuilt := Build(perm)
		if preOrderIDs(rebuilt) != preOrderIDs(forest) {
			t.Fatalf("rebuild mismatch:\n got %s\nwant %s", preOrderIDs(rebuilt), preOrderIDs(forest))
		}
	})
}

func setSortOrders(flat []model.MenuNode, forest []model.MenuNode) {
	order := make(map[string]int)
	for i := range forest {
		order[forest[i].ID] = i
	}
	Walk(forest, func(node *model.MenuNode, _ int) bool {
		for i := range node.Children {
			order[node.Children[i].ID] = i
		}
		return true
	})
	for i := range flat {
		flat[i].SortOrder = model.IntPtr(order[flat[i].ID])
	}
}

func cloneForest(forest []model.MenuNode) []model.MenuNode {
	if forest == nil {
		return nil
	}
	out := make([]model.MenuNode, len(forest))
	for i := range forest {
		out[i] = forest[i].Clone()
	}
	return out
}
