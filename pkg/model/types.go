package model

import (
	"fmt"
	"strings"
)

// MenuNode represents one entry in the menu hierarchy as the remote API
// returns it. Children are ordered; insertion order is display order.
type MenuNode struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ParentID  *string    `json:"parentId,omitempty"`
	SortOrder *int       `json:"sortOrder,omitempty"`
	Children  []MenuNode `json:"children,omitempty"`
}

// Clone creates a deep copy of the node and its subtree
func (n MenuNode) Clone() MenuNode {
	clone := n

	if n.ParentID != nil {
		v := *n.ParentID
		clone.ParentID = &v
	}
	if n.SortOrder != nil {
		v := *n.SortOrder
		clone.SortOrder = &v
	}

	if n.Children != nil {
		clone.Children = make([]MenuNode, len(n.Children))
		for i, child := range n.Children {
			clone.Children[i] = child.Clone()
		}
	}

	return clone
}

// IsLeaf returns true if the node has no children
func (n MenuNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// IsRoot returns true if the node declares no parent
func (n MenuNode) IsRoot() bool {
	return n.ParentID == nil || *n.ParentID == ""
}

// Validate checks if the node data is logically valid.
// Only the node itself is checked, not its subtree.
func (n *MenuNode) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("menu ID cannot be empty")
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("menu name cannot be empty")
	}
	if n.ParentID != nil && *n.ParentID == n.ID {
		return fmt.Errorf("menu %s cannot be its own parent", n.ID)
	}
	return nil
}

// MenuInput is the create/update payload accepted by the menu service.
type MenuInput struct {
	Name      string  `json:"name"`
	ParentID  *string `json:"parentId"`
	SortOrder int     `json:"sortOrder"`
}

// Validate checks that the payload can be submitted
func (in *MenuInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("menu name cannot be empty")
	}
	return nil
}

// Placement is the move/reorder payload. ParentID is always serialized;
// null places the node at root level.
type Placement struct {
	ParentID  *string `json:"parentId"`
	SortOrder int     `json:"sortOrder"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// ParentIDOrEmpty dereferences the parent ID, returning "" for roots
func (n MenuNode) ParentIDOrEmpty() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// SortOrderOrZero dereferences the sort order, returning 0 when unset
func (n MenuNode) SortOrderOrZero() int {
	if n.SortOrder == nil {
		return 0
	}
	return *n.SortOrder
}
