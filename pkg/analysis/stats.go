package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

// Stats summarizes the shape of a menu forest for the status bar and CLI.
type Stats struct {
	Nodes        int      `json:"nodes"`
	Roots        int      `json:"roots"`
	Leaves       int      `json:"leaves"`
	MaxDepth     int      `json:"max_depth"`
	DuplicateIDs []string `json:"duplicate_ids,omitempty"`
}

// ComputeStats walks the forest once. MaxDepth is 0-based (a forest of
// lone roots has MaxDepth 0); an empty forest reports zeros.
func ComputeStats(forest []model.MenuNode) Stats {
	stats := Stats{Roots: len(forest)}
	seen := make(map[string]int)

	tree.Walk(forest, func(node *model.MenuNode, depth int) bool {
		stats.Nodes++
		if node.IsLeaf() {
			stats.Leaves++
		}
		if depth > stats.MaxDepth {
			stats.MaxDepth = depth
		}
		seen[node.ID]++
		if seen[node.ID] == 2 {
			stats.DuplicateIDs = append(stats.DuplicateIDs, node.ID)
		}
		return true
	})

	return stats
}

// Summary renders the stats as a single status-bar line.
func (s Stats) Summary() string {
	line := fmt.Sprintf("Menus:%d Roots:%d Leaves:%d Depth:%d", s.Nodes, s.Roots, s.Leaves, s.MaxDepth)
	if len(s.DuplicateIDs) > 0 {
		line += fmt.Sprintf(" Duplicates:%d", len(s.DuplicateIDs))
	}
	return line
}

// ComputeDataHash returns a content hash of the forest for change detection.
// Two snapshots with the same structure, names, and metadata hash equal.
func ComputeDataHash(forest []model.MenuNode) string {
	data, err := json.Marshal(forest)
	if err != nil {
		// MenuNode always marshals; fall back to an unmatchable hash.
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
