// tree.go - Hierarchical menu tree with expand/collapse and cursor navigation
package ui

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/menuadmin/pkg/analysis"
	"github.com/vanderheijden86/menuadmin/pkg/model"
)

// TreeState represents the persistent state of the tree view.
// This is saved to tree-state.json in the state directory to preserve
// expand/collapse state across sessions.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "expanded": {
//	    "menu-123": false   // explicitly collapsed
//	  }
//	}
//
// Only explicit user changes are stored; every node defaults to expanded.
// A corrupted or missing file means defaults.
type TreeState struct {
	Version  int             `json:"version"`
	Expanded map[string]bool `json:"expanded"`
}

// TreeStateVersion is the current schema version for tree persistence
const TreeStateVersion = 1

// DefaultTreeState returns a new TreeState with sensible defaults
func DefaultTreeState() *TreeState {
	return &TreeState{
		Version:  TreeStateVersion,
		Expanded: make(map[string]bool),
	}
}

const treeStateFileName = "tree-state.json"

// TreeStatePath returns the path to the tree state file inside stateDir.
// An empty stateDir disables persistence.
func TreeStatePath(stateDir string) string {
	if stateDir == "" {
		return ""
	}
	return filepath.Join(stateDir, treeStateFileName)
}

// SetStateDir sets the directory for tree-state.json. Empty disables
// persistence, which is what tests want.
func (t *TreeModel) SetStateDir(dir string) {
	t.stateDir = dir
}

// saveState persists the current expand/collapse state to disk.
// Errors are logged but do not interrupt the user experience.
func (t *TreeModel) saveState() {
	path := TreeStatePath(t.stateDir)
	if path == "" {
		return
	}

	state := DefaultTreeState()
	for id, node := range t.nodeMap {
		if !node.Expanded && len(node.Children) > 0 {
			state.Expanded[id] = false
		}
	}
	// Keep collapsed state for nodes hidden by the root filter.
	for id, expanded := range t.pending {
		if _, visible := t.nodeMap[id]; !visible {
			state.Expanded[id] = expanded
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		log.Printf("warning: failed to marshal tree state: %v", err)
		return
	}

	if err := os.MkdirAll(t.stateDir, 0755); err != nil {
		log.Printf("warning: failed to create state directory %s: %v", t.stateDir, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("warning: failed to write tree state to %s: %v", path, err)
	}
}

// loadState reads persisted expand/collapse state. Missing or corrupted
// files yield an empty map.
func (t *TreeModel) loadState() map[string]bool {
	path := TreeStatePath(t.stateDir)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var state TreeState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("warning: invalid tree state file, using defaults: %v", err)
		return nil
	}
	if state.Version != TreeStateVersion {
		log.Printf("warning: tree state version %d unsupported, using defaults", state.Version)
		return nil
	}
	return state.Expanded
}

// MenuTreeNode is one row source in the tree view.
type MenuTreeNode struct {
	Menu     *model.MenuNode
	Children []*MenuTreeNode
	Expanded bool
	Depth    int
	Parent   *MenuTreeNode
}

// TreeModel manages the hierarchical tree view state
type TreeModel struct {
	forest         []model.MenuNode // owned copy; nodes point into it
	roots          []*MenuTreeNode
	flatList       []*MenuTreeNode // visible nodes in display order
	cursor         int
	theme          Theme
	nodeMap        map[string]*MenuTreeNode
	width          int
	height         int
	viewportOffset int

	// marked is the id of the node cut for a move, highlighted until pasted.
	marked string

	built    bool
	lastHash string

	stateDir string
	// pending is the expand state loaded from disk, kept across rebuilds.
	pending map[string]bool
}

// NewTreeModel creates an empty tree model
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{
		theme:   theme,
		nodeMap: make(map[string]*MenuTreeNode),
	}
}

// SetSize updates the available dimensions for the tree view
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// Build replaces the tree contents with forest. Sibling order is kept as
// given. Expand state survives rebuilds; the cursor stays on the same id
// when it still exists.
func (t *TreeModel) Build(forest []model.MenuNode) {
	hash := analysis.ComputeDataHash(forest)
	if t.built && hash == t.lastHash {
		return
	}

	prevID := t.GetSelectedID()
	if t.pending == nil {
		t.pending = t.loadState()
		if t.pending == nil {
			t.pending = make(map[string]bool)
		}
	}
	for id, node := range t.nodeMap {
		t.pending[id] = node.Expanded
	}

	t.forest = make([]model.MenuNode, len(forest))
	for i := range forest {
		t.forest[i] = forest[i].Clone()
	}
	t.roots = nil
	t.flatList = nil
	t.nodeMap = make(map[string]*MenuTreeNode)
	t.cursor = 0
	t.viewportOffset = 0

	for i := range t.forest {
		t.roots = append(t.roots, t.buildNode(&t.forest[i], 0, nil))
	}

	t.rebuildFlatList()
	if prevID != "" {
		t.SelectByID(prevID)
	}
	t.lastHash = hash
	t.built = true
}

func (t *TreeModel) buildNode(menu *model.MenuNode, depth int, parent *MenuTreeNode) *MenuTreeNode {
	node := &MenuTreeNode{
		Menu:     menu,
		Depth:    depth,
		Parent:   parent,
		Expanded: true,
	}
	if expanded, ok := t.pending[menu.ID]; ok {
		node.Expanded = expanded
	}
	// First occurrence wins the lookup for duplicate ids.
	if _, dup := t.nodeMap[menu.ID]; !dup {
		t.nodeMap[menu.ID] = node
	}

	for i := range menu.Children {
		node.Children = append(node.Children, t.buildNode(&menu.Children[i], depth+1, node))
	}
	return node
}

// Forest returns the tree's copy of the data it was built from.
func (t *TreeModel) Forest() []model.MenuNode {
	return t.forest
}

// View renders the visible window of the tree.
func (t *TreeModel) View() string {
	if !t.built || len(t.flatList) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		node := t.flatList[i]
		isSelected := i == t.cursor
		line := t.renderNode(node)
		if isSelected {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func (t *TreeModel) renderEmptyState() string {
	r := t.theme.Renderer
	titleStyle := r.NewStyle().Foreground(t.theme.Primary).Bold(true)
	mutedStyle := r.NewStyle().Foreground(t.theme.Muted)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Menus"))
	sb.WriteString("\n\n")
	if !t.built {
		sb.WriteString(mutedStyle.Render("Loading menus..."))
		return sb.String()
	}
	sb.WriteString(mutedStyle.Render("No menus to display."))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("Press A to create a root menu."))
	return sb.String()
}

// renderNode renders a single tree node with tree characters and styling.
func (t *TreeModel) renderNode(node *MenuTreeNode) string {
	r := t.theme.Renderer
	var sb strings.Builder

	prefix := t.buildTreePrefix(node)
	sb.WriteString(prefix)

	indicatorStyle := r.NewStyle().Foreground(t.theme.Secondary)
	sb.WriteString(indicatorStyle.Render(t.getExpandIndicator(node)))
	sb.WriteString(" ")

	icon, iconColor := t.theme.GetNodeIcon(len(node.Children) > 0, node.Expanded)
	sb.WriteString(r.NewStyle().Foreground(iconColor).Render(icon))
	sb.WriteString(" ")

	used := runewidth.StringWidth(t.plainPrefix(node)) + 5
	idText := " " + node.Menu.ID
	maxName := t.width - used - runewidth.StringWidth(idText)
	if maxName < 10 {
		maxName = 10
	}

	nameStyle := r.NewStyle()
	if node.Menu.ID == t.marked && t.marked != "" {
		nameStyle = nameStyle.Foreground(t.theme.Danger).Italic(true)
		sb.WriteString(nameStyle.Render("✂ " + truncateName(node.Menu.Name, maxName-2)))
	} else {
		sb.WriteString(nameStyle.Render(truncateName(node.Menu.Name, maxName)))
	}

	if t.width == 0 || used+runewidth.StringWidth(node.Menu.Name)+runewidth.StringWidth(idText) <= t.width {
		sb.WriteString(r.NewStyle().Foreground(t.theme.Muted).Render(idText))
	}
	return sb.String()
}

// plainPrefix is the unstyled prefix, for width accounting.
func (t *TreeModel) plainPrefix(node *MenuTreeNode) string {
	if node.Depth == 0 {
		return ""
	}
	var parts []string
	ancestors := t.getAncestors(node)
	for i := 0; i < len(ancestors)-1; i++ {
		if ancestors[i].Depth == 0 {
			continue
		}
		if t.hasSiblingsBelow(ancestors[i]) {
			parts = append(parts, "│   ")
		} else {
			parts = append(parts, "    ")
		}
	}
	if t.isLastChild(node) {
		parts = append(parts, "└── ")
	} else {
		parts = append(parts, "├── ")
	}
	return strings.Join(parts, "")
}

// buildTreePrefix builds the indentation and branch characters for a node.
func (t *TreeModel) buildTreePrefix(node *MenuTreeNode) string {
	prefix := t.plainPrefix(node)
	if prefix == "" {
		return ""
	}
	return t.theme.Renderer.NewStyle().Foreground(t.theme.Muted).Render(prefix)
}

// getAncestors returns the ancestors from root to parent, with the node itself at the end.
func (t *TreeModel) getAncestors(node *MenuTreeNode) []*MenuTreeNode {
	var ancestors []*MenuTreeNode
	for current := node.Parent; current != nil; current = current.Parent {
		ancestors = append([]*MenuTreeNode{current}, ancestors...)
	}
	return append(ancestors, node)
}

func (t *TreeModel) siblingsOf(node *MenuTreeNode) []*MenuTreeNode {
	if node.Parent == nil {
		return t.roots
	}
	return node.Parent.Children
}

// hasSiblingsBelow checks if a node has siblings below it in the tree.
func (t *TreeModel) hasSiblingsBelow(node *MenuTreeNode) bool {
	siblings := t.siblingsOf(node)
	for i, s := range siblings {
		if s == node {
			return i < len(siblings)-1
		}
	}
	return false
}

// isLastChild checks if a node is the last child of its parent.
func (t *TreeModel) isLastChild(node *MenuTreeNode) bool {
	siblings := t.siblingsOf(node)
	return len(siblings) > 0 && siblings[len(siblings)-1] == node
}

// getExpandIndicator returns the expand/collapse indicator for a node.
func (t *TreeModel) getExpandIndicator(node *MenuTreeNode) string {
	if len(node.Children) == 0 {
		return "•"
	}
	if node.Expanded {
		return "▾"
	}
	return "▸"
}

// truncateName cuts name to maxWidth display cells with an ellipsis.
func truncateName(name string, maxWidth int) string {
	if maxWidth <= 1 {
		return "…"
	}
	return runewidth.Truncate(name, maxWidth, "…")
}

// SelectedMenu returns the currently selected menu, or nil if none.
func (t *TreeModel) SelectedMenu() *model.MenuNode {
	if node := t.SelectedNode(); node != nil {
		return node.Menu
	}
	return nil
}

// SelectedNode returns the currently selected tree node, or nil if none.
func (t *TreeModel) SelectedNode() *MenuTreeNode {
	if t.cursor >= 0 && t.cursor < len(t.flatList) {
		return t.flatList[t.cursor]
	}
	return nil
}

// GetSelectedID returns the ID of the currently selected menu, or empty string.
func (t *TreeModel) GetSelectedID() string {
	if m := t.SelectedMenu(); m != nil {
		return m.ID
	}
	return ""
}

// SelectByID moves the cursor to the node with the given id, expanding
// collapsed ancestors so it becomes visible. Returns false if not found.
func (t *TreeModel) SelectByID(id string) bool {
	node, ok := t.nodeMap[id]
	if !ok {
		return false
	}
	changed := false
	for p := node.Parent; p != nil; p = p.Parent {
		if !p.Expanded {
			p.Expanded = true
			changed = true
		}
	}
	if changed {
		t.rebuildFlatList()
		t.saveState()
	}
	for i, n := range t.flatList {
		if n == node {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

// Mark highlights the node with id as cut; empty clears.
func (t *TreeModel) Mark(id string) {
	t.marked = id
}

// Marked returns the id of the cut node.
func (t *TreeModel) Marked() string {
	return t.marked
}

// MoveDown moves the cursor down in the flat list.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.flatList)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// MoveUp moves the cursor up in the flat list.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

// ToggleExpand expands or collapses the currently selected node.
func (t *TreeModel) ToggleExpand() {
	node := t.SelectedNode()
	if node != nil && len(node.Children) > 0 {
		node.Expanded = !node.Expanded
		t.rebuildFlatList()
		t.saveState()
	}
}

// ExpandAll expands all nodes in the tree.
func (t *TreeModel) ExpandAll() {
	t.setAllExpanded(true)
}

// CollapseAll collapses all nodes in the tree.
func (t *TreeModel) CollapseAll() {
	t.setAllExpanded(false)
}

func (t *TreeModel) setAllExpanded(expanded bool) {
	selected := t.SelectedNode()
	for _, node := range t.nodeMap {
		node.Expanded = expanded
	}
	t.rebuildFlatList()
	// Collapsing may hide the selection; fall back to its root.
	if selected != nil {
		for selected.Parent != nil && !expanded {
			selected = selected.Parent
		}
		for i, n := range t.flatList {
			if n == selected {
				t.cursor = i
			}
		}
	}
	t.ensureCursorVisible()
	t.saveState()
}

// JumpToTop moves cursor to the first node.
func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

// JumpToBottom moves cursor to the last node.
func (t *TreeModel) JumpToBottom() {
	if len(t.flatList) > 0 {
		t.cursor = len(t.flatList) - 1
		t.ensureCursorVisible()
	}
}

// JumpToParent moves cursor to the parent of the currently selected node.
func (t *TreeModel) JumpToParent() {
	node := t.SelectedNode()
	if node == nil || node.Parent == nil {
		return
	}
	for i, n := range t.flatList {
		if n == node.Parent {
			t.cursor = i
			t.ensureCursorVisible()
			return
		}
	}
}

// ExpandOrMoveToChild handles the → / l key:
// expand a collapsed node, or step into the first child of an expanded one.
func (t *TreeModel) ExpandOrMoveToChild() {
	node := t.SelectedNode()
	if node == nil || len(node.Children) == 0 {
		return
	}
	if !node.Expanded {
		node.Expanded = true
		t.rebuildFlatList()
		t.saveState()
		return
	}
	// First child sits right after the node in flatList.
	if t.cursor+1 < len(t.flatList) && t.flatList[t.cursor+1] == node.Children[0] {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// CollapseOrJumpToParent handles the ← / h key:
// collapse an expanded node, otherwise jump to the parent.
func (t *TreeModel) CollapseOrJumpToParent() {
	node := t.SelectedNode()
	if node == nil {
		return
	}
	if len(node.Children) > 0 && node.Expanded {
		node.Expanded = false
		t.rebuildFlatList()
		t.saveState()
		return
	}
	t.JumpToParent()
}

func (t *TreeModel) pageSize() int {
	size := t.height / 2
	if size < 1 {
		size = 5
	}
	return size
}

// PageDown moves cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.cursor += t.pageSize()
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

// PageUp moves cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.cursor -= t.pageSize()
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

func (t *TreeModel) visibleCount() int {
	if t.height <= 0 {
		return 20
	}
	return t.height
}

// ensureCursorVisible scrolls the window so the cursor row is on screen.
func (t *TreeModel) ensureCursorVisible() {
	count := t.visibleCount()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+count {
		t.viewportOffset = t.cursor - count + 1
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

// visibleRange returns the [start, end) indices of rows to render.
func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.flatList) == 0 {
		return 0, 0
	}
	count := t.visibleCount()
	start = t.viewportOffset
	end = start + count
	if end > len(t.flatList) {
		end = len(t.flatList)
		start = end - count
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// rebuildFlatList rebuilds the flattened list of visible nodes.
func (t *TreeModel) rebuildFlatList() {
	t.flatList = t.flatList[:0]
	for _, root := range t.roots {
		t.appendVisible(root)
	}
	if t.cursor >= len(t.flatList) {
		t.cursor = len(t.flatList) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

func (t *TreeModel) appendVisible(node *MenuTreeNode) {
	t.flatList = append(t.flatList, node)
	if node.Expanded {
		for _, child := range node.Children {
			t.appendVisible(child)
		}
	}
}

// IsBuilt returns whether the tree has been built.
func (t *TreeModel) IsBuilt() bool {
	return t.built
}

// NodeCount returns the number of visible rows.
func (t *TreeModel) NodeCount() int {
	return len(t.flatList)
}

// RootCount returns the number of root nodes.
func (t *TreeModel) RootCount() int {
	return len(t.roots)
}
