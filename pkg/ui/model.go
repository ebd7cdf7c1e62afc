package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/menuadmin/pkg/analysis"
	"github.com/vanderheijden86/menuadmin/pkg/menuapi"
	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

// SplitViewThreshold is the terminal width above which the detail panel is
// shown next to the tree.
const SplitViewThreshold = 100

type focus int

const (
	focusTree focus = iota
	focusDetail
	focusRootPicker
	focusForm
	focusConfirm
)

// Options configures the root model.
type Options struct {
	Service menuapi.Service
	// Worker, when set, does all loading. Without it the model lists the
	// service directly.
	Worker *BackgroundWorker
	// StrictParents drops a node's descendants from its edit form's parent list.
	StrictParents bool
	// StateDir holds tree-state.json. Empty disables persistence.
	StateDir string
	// Backend is shown in the status bar ("http", "sqlite").
	Backend string
	// LoadTimeout bounds direct loads when there is no worker.
	LoadTimeout time.Duration
	Theme       *Theme
	// Clipboard replaces the system clipboard, for tests.
	Clipboard func(string) error
}

// Model is the main Bubble Tea model for the menu admin.
type Model struct {
	opts   Options
	theme  Theme
	writer *MenuWriter

	// Data
	forest     []model.MenuNode // full forest; the tree may show a subset
	snapshot   *DataSnapshot
	rootFilter string

	// Sub-models
	tree    TreeModel
	detail  DetailModel
	picker  RootPickerModel
	form    *EditForm
	confirm *DeleteConfirm
	spinner spinner.Model

	// UI state
	focused       focus
	showHelp      bool
	loading       bool
	pendingSelect string
	statusMsg     string
	statusIsError bool
	width         int
	height        int
	ready         bool
	isSplitView   bool
}

// NewModel creates the root model. Data arrives through SnapshotReadyMsg.
func NewModel(opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	if opts.LoadTimeout == 0 {
		opts.LoadTimeout = 30 * time.Second
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Renderer.NewStyle().Foreground(theme.Primary)

	t := NewTreeModel(theme)
	t.SetStateDir(opts.StateDir)

	return Model{
		opts:    opts,
		theme:   theme,
		writer:  NewMenuWriter(opts.Service),
		tree:    t,
		detail:  NewDetailModel(),
		spinner: sp,
		loading: opts.Service != nil,
	}
}

// Init starts the spinner and the first load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadCmd(true))
}

// loadCmd asks for fresh data. force makes the worker deliver a snapshot
// even when nothing changed, so the spinner always stops.
func (m Model) loadCmd(force bool) tea.Cmd {
	if m.opts.Worker != nil {
		if force {
			m.opts.Worker.ResetHash()
		}
		return m.opts.Worker.RefreshCmd()
	}
	svc := m.opts.Service
	if svc == nil {
		return nil
	}
	timeout := m.opts.LoadTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		forest, err := svc.List(ctx)
		if err != nil {
			return SnapshotErrorMsg{Err: WorkerError{Phase: "load", Cause: err, Time: time.Now(), Retries: 1}, Recoverable: true}
		}
		return SnapshotReadyMsg{Snapshot: &DataSnapshot{
			Forest:       forest,
			Stats:        analysis.ComputeStats(forest),
			DataHash:     analysis.ComputeDataHash(forest),
			LoadedAt:     time.Now(),
			LoadDuration: time.Since(start),
		}}
	}
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case SnapshotReadyMsg:
		m.loading = false
		if msg.Snapshot != nil {
			m.snapshot = msg.Snapshot
			m.forest = msg.Snapshot.Forest
			m.applyForest()
		}
		return m, nil

	case SnapshotErrorMsg:
		m.loading = false
		m.setStatus(fmt.Sprintf("Load failed: %v", msg.Err), true)
		return m, nil

	case MenuResultMsg:
		m.setStatus(msg.StatusText(), !msg.Success)
		if !msg.Success {
			m.loading = false
			m.pendingSelect = ""
			return m, nil
		}
		if msg.Operation == MenuOpCreate && msg.NodeID != "" {
			m.pendingSelect = msg.NodeID
		}
		m.loading = true
		return m, m.loadCmd(true)

	case RootSelectedMsg:
		m.focused = focusTree
		m.rootFilter = msg.RootID
		m.applyForest()
		if msg.RootID == "" {
			m.setStatus("Showing all root menus", false)
		} else if root := tree.Find(m.forest, msg.RootID); root != nil {
			m.setStatus(fmt.Sprintf("Showing %s", root.Name), false)
		}
		return m, nil

	case RootPickerClosedMsg:
		m.focused = focusTree
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Anything else belongs to whichever dialog is open (huh uses its own
	// messages to advance fields).
	return m.forwardToDialog(msg)
}

func (m Model) forwardToDialog(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.focused {
	case focusForm:
		cmd := m.form.Update(msg)
		return m.afterForm(cmd)
	case focusConfirm:
		cmd := m.confirm.Update(msg)
		return m.afterConfirm(cmd)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	switch m.focused {
	case focusForm:
		if msg.String() == "esc" {
			m.form = nil
			m.focused = focusTree
			m.setStatus("Cancelled", false)
			return m, nil
		}
		return m.forwardToDialog(msg)
	case focusConfirm:
		if msg.String() == "esc" {
			m.confirm = nil
			m.focused = focusTree
			return m, nil
		}
		return m.forwardToDialog(msg)
	case focusRootPicker:
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	if m.showHelp {
		switch msg.String() {
		case "?", "esc", "q":
			m.showHelp = false
		}
		return m, nil
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "?":
		m.showHelp = true
		return m, nil
	case "tab":
		if m.focused == focusTree {
			m.focused = focusDetail
		} else {
			m.focused = focusTree
		}
		return m, nil
	}

	if m.focused == focusDetail {
		if msg.String() == "esc" {
			m.focused = focusTree
			return m, nil
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m.handleTreeKey(msg)
}

func (m Model) handleTreeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.String() {
	case "j", "down":
		m.tree.MoveDown()
	case "k", "up":
		m.tree.MoveUp()
	case "g", "home":
		m.tree.JumpToTop()
	case "G", "end":
		m.tree.JumpToBottom()
	case "h", "left":
		m.tree.CollapseOrJumpToParent()
	case "l", "right":
		m.tree.ExpandOrMoveToChild()
	case "ctrl+d", "pgdown":
		m.tree.PageDown()
	case "ctrl+u", "pgup":
		m.tree.PageUp()
	case "enter", " ":
		m.tree.ToggleExpand()
	case "E":
		m.tree.ExpandAll()
	case "C":
		m.tree.CollapseAll()
	case "esc":
		if m.tree.Marked() != "" {
			m.tree.Mark("")
			m.setStatus("Cut cleared", false)
		}
	case "a":
		m, cmd = m.openCreate(m.tree.GetSelectedID())
	case "A":
		m, cmd = m.openCreate("")
	case "e":
		m, cmd = m.openEdit()
	case "d":
		m, cmd = m.openDelete()
	case "x":
		m.toggleCut()
	case "p":
		if id := m.tree.GetSelectedID(); id != "" {
			cmd = m.paste(id)
		} else {
			m.setStatus("Select a menu to paste under", true)
		}
	case "P":
		cmd = m.paste("")
	case "K", "shift+up":
		cmd = m.reorder(-1)
	case "J", "shift+down":
		cmd = m.reorder(1)
	case "r":
		m.loading = true
		m.setStatus("Refreshing...", false)
		cmd = m.loadCmd(true)
	case "f":
		m.picker = NewRootPicker(m.forest, m.rootFilter, m.theme)
		m.picker.SetSize(m.width, m.height-1)
		m.focused = focusRootPicker
	case "y":
		m.copySelectedID()
	}
	m.syncDetail()
	return m, cmd
}

func (m Model) openCreate(parentID string) (Model, tea.Cmd) {
	if !m.writer.IsAvailable() {
		m.setStatus("No menu backend configured", true)
		return m, nil
	}
	m.form = NewCreateForm(m.forest, parentID)
	m.focused = focusForm
	return m, m.form.Init()
}

func (m Model) openEdit() (Model, tea.Cmd) {
	id := m.tree.GetSelectedID()
	node := tree.Find(m.forest, id)
	if node == nil {
		m.setStatus("Select a menu to edit", true)
		return m, nil
	}
	m.form = NewEditForm(m.forest, *node, m.opts.StrictParents)
	m.focused = focusForm
	return m, m.form.Init()
}

func (m Model) openDelete() (Model, tea.Cmd) {
	id := m.tree.GetSelectedID()
	node := tree.Find(m.forest, id)
	if node == nil {
		m.setStatus("Select a menu to delete", true)
		return m, nil
	}
	m.confirm = NewDeleteConfirm(*node)
	m.focused = focusConfirm
	return m, m.confirm.Init()
}

func (m Model) afterForm(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	switch {
	case m.form.Aborted():
		m.form = nil
		m.focused = focusTree
		return m, nil
	case !m.form.Completed():
		return m, cmd
	}

	form := m.form
	m.form = nil
	m.focused = focusTree

	in, err := form.Input()
	if err != nil {
		m.setStatus(err.Error(), true)
		return m, nil
	}
	m.loading = true
	if form.Mode == tree.ModeCreate {
		m.setStatus("Creating...", false)
		return m, m.writer.Create(in)
	}
	m.pendingSelect = form.NodeID
	m.setStatus("Saving...", false)
	return m, m.writer.Update(form.NodeID, in)
}

func (m Model) afterConfirm(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if !m.confirm.Done() {
		return m, cmd
	}
	confirm := m.confirm
	m.confirm = nil
	m.focused = focusTree
	if !confirm.Confirmed() {
		return m, nil
	}

	// Land on the parent, or on a neighbouring root, once the node is gone.
	path := tree.FindPath(m.forest, confirm.NodeID)
	if len(path) >= 2 {
		m.pendingSelect = path[len(path)-2].ID
	}
	if m.tree.Marked() == confirm.NodeID {
		m.tree.Mark("")
	}
	m.loading = true
	m.setStatus("Deleting...", false)
	return m, m.writer.Delete(confirm.NodeID)
}

func (m *Model) toggleCut() {
	id := m.tree.GetSelectedID()
	if id == "" {
		return
	}
	if m.tree.Marked() == id {
		m.tree.Mark("")
		m.setStatus("Cut cleared", false)
		return
	}
	m.tree.Mark(id)
	m.setStatus("Cut: press p to paste under a menu, P to paste at root", false)
}

// paste moves the cut node under parentID ("" for root level), appended
// after the existing children.
func (m *Model) paste(parentID string) tea.Cmd {
	cut := m.tree.Marked()
	if cut == "" {
		m.setStatus("Nothing to paste: press x on a menu first", true)
		return nil
	}
	node := tree.Find(m.forest, cut)
	if node == nil {
		m.tree.Mark("")
		m.setStatus("The cut menu no longer exists", true)
		return nil
	}
	if parentID == cut || tree.Descendants(m.forest, cut)[parentID] {
		m.setStatus("Cannot move a menu into itself", true)
		return nil
	}

	siblings := m.forest
	if parentID != "" {
		parent := tree.Find(m.forest, parentID)
		if parent == nil {
			m.setStatus("Target menu no longer exists", true)
			return nil
		}
		siblings = parent.Children
	}

	m.tree.Mark("")
	m.pendingSelect = cut
	m.loading = true
	m.setStatus("Moving...", false)
	return m.writer.Move(cut, model.Placement{
		ParentID:  model.StringPtr(parentID),
		SortOrder: len(siblings),
	})
}

// reorder swaps the selected node with its previous (delta -1) or next
// (delta +1) sibling.
func (m *Model) reorder(delta int) tea.Cmd {
	id := m.tree.GetSelectedID()
	siblings, idx, ok := tree.Siblings(m.forest, id)
	if !ok {
		return nil
	}
	other := idx + delta
	if other < 0 {
		m.setStatus("Already first", false)
		return nil
	}
	if other >= len(siblings) {
		m.setStatus("Already last", false)
		return nil
	}

	var parentID *string
	if path := tree.FindPath(m.forest, id); len(path) >= 2 {
		parentID = model.StringPtr(path[len(path)-2].ID)
	}

	m.pendingSelect = id
	m.loading = true
	m.setStatus("Reordering...", false)
	return m.writer.Reorder(id, swapReorders(siblings, idx, other, parentID))
}

// swapReorders returns the writes that swap siblings[i] and siblings[j].
// Distinct ascending orders are exchanged between the two nodes. Tied or
// unset orders cannot express a swap, so the whole list is renumbered
// 0..n-1 by position and only the nodes whose order changes are written.
func swapReorders(siblings []model.MenuNode, i, j int, parentID *string) []menuapi.Reordering {
	if ordersStrictlyAscending(siblings) {
		a, b := siblings[i], siblings[j]
		return []menuapi.Reordering{
			{ID: a.ID, Placement: model.Placement{ParentID: parentID, SortOrder: b.SortOrderOrZero()}},
			{ID: b.ID, Placement: model.Placement{ParentID: parentID, SortOrder: a.SortOrderOrZero()}},
		}
	}

	order := make([]int, len(siblings))
	for k := range order {
		order[k] = k
	}
	order[i], order[j] = order[j], order[i]

	var moves []menuapi.Reordering
	for pos, k := range order {
		n := siblings[k]
		if n.SortOrder != nil && *n.SortOrder == pos {
			continue
		}
		moves = append(moves, menuapi.Reordering{
			ID:        n.ID,
			Placement: model.Placement{ParentID: parentID, SortOrder: pos},
		})
	}
	return moves
}

func ordersStrictlyAscending(siblings []model.MenuNode) bool {
	for k, n := range siblings {
		if n.SortOrder == nil {
			return false
		}
		if k > 0 && *n.SortOrder <= *siblings[k-1].SortOrder {
			return false
		}
	}
	return true
}

func (m *Model) copySelectedID() {
	id := m.tree.GetSelectedID()
	if id == "" {
		return
	}
	if err := m.opts.Clipboard(id); err != nil {
		m.setStatus(fmt.Sprintf("Clipboard error: %v", err), true)
		return
	}
	m.setStatus(fmt.Sprintf("Copied %s", id), false)
}

func (m *Model) setStatus(text string, isError bool) {
	m.statusMsg = text
	m.statusIsError = isError
}

// applyForest rebuilds the tree from the full forest and the root filter.
func (m *Model) applyForest() {
	if m.rootFilter != "" && tree.Find(m.forest, m.rootFilter) == nil {
		m.rootFilter = ""
		m.setStatus("Root filter cleared: menu no longer exists", false)
	}
	m.tree.Build(tree.FilterRoot(m.forest, m.rootFilter))
	if m.pendingSelect != "" {
		m.tree.SelectByID(m.pendingSelect)
		m.pendingSelect = ""
	}
	m.syncDetail()
}

func (m *Model) syncDetail() {
	hash := ""
	if m.snapshot != nil {
		hash = m.snapshot.DataHash
	}
	m.detail.Show(m.forest, tree.Find(m.forest, m.tree.GetSelectedID()), hash)
}

// layout distributes the terminal between the panels.
func (m *Model) layout() {
	m.isSplitView = m.width > SplitViewThreshold
	bodyHeight := m.height - 2 // breadcrumbs + status bar
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	if m.isSplitView {
		treeWidth := m.width * 45 / 100
		m.tree.SetSize(treeWidth-2, bodyHeight-2)
		m.detail.SetSize(m.width-treeWidth-4, bodyHeight-2)
	} else {
		m.tree.SetSize(m.width, bodyHeight)
		m.detail.SetSize(m.width, bodyHeight)
	}
	m.picker.SetSize(m.width, m.height-1)
	m.syncDetail()
}

// View renders the whole screen.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	bodyHeight := m.height - 2
	var body string
	switch {
	case m.showHelp:
		body = RenderContextHelp(m.context(), m.theme, m.width, bodyHeight)
	case m.focused == focusRootPicker:
		body = m.picker.View()
	case m.focused == focusForm:
		body = m.renderDialog(m.form.Title(), m.form.View(), bodyHeight)
	case m.focused == focusConfirm:
		body = m.renderDialog("Delete Menu", m.confirm.View(), bodyHeight)
	case m.isSplitView:
		body = m.renderSplit(bodyHeight)
	case m.focused == focusDetail:
		body = m.detail.View()
	default:
		body = m.tree.View()
	}
	body = m.theme.Renderer.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) renderSplit(height int) string {
	r := m.theme.Renderer
	panel := r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(m.theme.Border)
	focused := panel.BorderForeground(m.theme.Primary)

	treeStyle, detailStyle := focused, panel
	if m.focused == focusDetail {
		treeStyle, detailStyle = panel, focused
	}
	treeWidth := m.width * 45 / 100
	treeView := treeStyle.Width(treeWidth - 2).Height(height - 2).Render(m.tree.View())
	detailView := detailStyle.Width(m.width - treeWidth - 2).Height(height - 2).Render(m.detail.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, treeView, detailView)
}

func (m Model) renderDialog(title, content string, height int) string {
	r := m.theme.Renderer
	titleStyle := r.NewStyle().Foreground(m.theme.Primary).Bold(true).MarginBottom(1)
	width := 60
	if width > m.width-4 {
		width = m.width - 4
	}
	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(1, 2).
		Width(width).
		Render(titleStyle.Render(title) + "\n" + content)
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, box)
}

func (m Model) renderHeader() string {
	r := m.theme.Renderer
	title := r.NewStyle().Foreground(m.theme.Primary).Bold(true).Padding(0, 1).Render("Menus")
	if m.rootFilter != "" {
		if root := tree.Find(m.forest, m.rootFilter); root != nil {
			title += r.NewStyle().Foreground(m.theme.Secondary).Render("[" + root.Name + "] ")
		}
	}
	crumbs := RenderBreadcrumbs(m.forest, m.tree.GetSelectedID(), m.theme, m.width-lipgloss.Width(title)-1)
	return title + crumbs
}

func (m Model) renderFooter() string {
	r := m.theme.Renderer

	backend := m.opts.Backend
	if backend == "" {
		backend = "menus"
	}
	left := r.NewStyle().Bold(true).Background(m.theme.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Padding(0, 1).Render(strings.ToUpper(backend))

	var stats string
	if m.snapshot != nil {
		stats = " " + m.snapshot.Stats.Summary() + " "
	}
	statsSection := r.NewStyle().Foreground(m.theme.Subtext).Render(stats)

	var status string
	if m.loading {
		status = m.spinner.View() + " "
	}
	statusStyle := r.NewStyle().Foreground(m.theme.Success)
	if m.statusIsError {
		statusStyle = statusStyle.Foreground(m.theme.Danger)
	}
	status += statusStyle.Render(m.statusMsg)

	keys := r.NewStyle().Foreground(m.theme.Muted).Padding(0, 1).Render(m.footerKeys())

	remaining := m.width - lipgloss.Width(left) - lipgloss.Width(statsSection) - lipgloss.Width(keys)
	statusWidth := lipgloss.Width(status)
	if statusWidth > remaining {
		status = truncateName(m.statusMsg, max(remaining-2, 0))
		statusWidth = lipgloss.Width(status)
	}
	filler := strings.Repeat(" ", max(remaining-statusWidth, 0))

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, statsSection, status, filler, keys)
}

func (m Model) footerKeys() string {
	switch m.context() {
	case ContextForm, ContextConfirm:
		return "enter: confirm • esc: cancel"
	case ContextRootPicker:
		return "/: filter • enter: apply • esc: cancel"
	case ContextDetail:
		return "j/k: scroll • tab: tree • q: quit"
	}
	if m.tree.Marked() != "" {
		return "p: paste • P: paste at root • esc: cancel cut"
	}
	return "a/A: new • e: edit • d: delete • x: cut • ?: help"
}

func (m Model) context() Context {
	switch m.focused {
	case focusDetail:
		return ContextDetail
	case focusRootPicker:
		return ContextRootPicker
	case focusForm:
		return ContextForm
	case focusConfirm:
		return ContextConfirm
	}
	return ContextTree
}

// SelectedID returns the id under the cursor.
func (m Model) SelectedID() string {
	return m.tree.GetSelectedID()
}

// Status returns the status bar message and whether it is an error.
func (m Model) Status() (string, bool) {
	return m.statusMsg, m.statusIsError
}

// RootFilter returns the id of the root the tree is narrowed to.
func (m Model) RootFilter() string {
	return m.rootFilter
}

// Forest returns the full forest from the latest snapshot.
func (m Model) Forest() []model.MenuNode {
	return m.forest
}

// Loading reports whether a load or write is in flight.
func (m Model) Loading() bool {
	return m.loading
}

// FocusContext reports which part of the UI has focus.
func (m Model) FocusContext() Context {
	return m.context()
}

// Marked returns the id of the cut menu, if any.
func (m Model) Marked() string {
	return m.tree.Marked()
}

// EditingForm returns the open create/edit form, or nil.
func (m Model) EditingForm() *EditForm {
	return m.form
}

// PendingDelete returns the open delete prompt, or nil.
func (m Model) PendingDelete() *DeleteConfirm {
	return m.confirm
}
