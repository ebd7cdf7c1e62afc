package ui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

// rootOptionLabel is the parent choice meaning "no parent".
const rootOptionLabel = "(root)"

// EditForm is the create/edit dialog for a single menu. Field values live
// on the struct so the huh form can bind to them by pointer; always use it
// through a *EditForm.
type EditForm struct {
	Mode   tree.Mode
	NodeID string

	name      string
	parentID  string
	sortOrder string

	form *huh.Form
}

// NewCreateForm opens a create dialog with parentID preselected ("" for a
// root menu). Sort order is not asked for and is submitted as 0.
func NewCreateForm(forest []model.MenuNode, parentID string) *EditForm {
	f := &EditForm{
		Mode:      tree.ModeCreate,
		parentID:  parentID,
		sortOrder: "0",
	}
	options := parentSelectOptions(tree.ParentOptions(forest, tree.ModeCreate, "", false))

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Placeholder("Menu name").
				CharLimit(200).
				Value(&f.name).
				Validate(validateName),
			huh.NewSelect[string]().
				Title("Parent").
				Options(options...).
				Height(min(len(options)+2, 10)).
				Value(&f.parentID),
		),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(true)
	return f
}

// nestedParentID is the parent the node is nested under in forest. parentId
// on the node is informational and may be missing from nested listings; it
// is only used when the node is not in forest at all.
func nestedParentID(forest []model.MenuNode, node model.MenuNode) string {
	path := tree.FindPath(forest, node.ID)
	switch {
	case len(path) >= 2:
		return path[len(path)-2].ID
	case len(path) == 1:
		return ""
	default:
		return node.ParentIDOrEmpty()
	}
}

// NewEditForm opens an edit dialog for node. With strictParents the parent
// list also drops the node's descendants, otherwise only the node itself.
func NewEditForm(forest []model.MenuNode, node model.MenuNode, strictParents bool) *EditForm {
	f := &EditForm{
		Mode:      tree.ModeEdit,
		NodeID:    node.ID,
		name:      node.Name,
		parentID:  nestedParentID(forest, node),
		sortOrder: strconv.Itoa(node.SortOrderOrZero()),
	}
	options := parentSelectOptions(tree.ParentOptions(forest, tree.ModeEdit, node.ID, strictParents))

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("ID").
				Description(node.ID),
			huh.NewInput().
				Title("Name").
				CharLimit(200).
				Value(&f.name).
				Validate(validateName),
			huh.NewSelect[string]().
				Title("Parent").
				Options(options...).
				Height(min(len(options)+2, 10)).
				Value(&f.parentID),
			huh.NewInput().
				Title("Sort order").
				Value(&f.sortOrder).
				Validate(validateSortOrder),
		),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(true)
	return f
}

func parentSelectOptions(flat []tree.FlatOption) []huh.Option[string] {
	options := make([]huh.Option[string], 0, len(flat)+1)
	options = append(options, huh.NewOption(rootOptionLabel, ""))
	for _, opt := range flat {
		options = append(options, huh.NewOption(opt.Label, opt.ID))
	}
	return options
}

func validateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func validateSortOrder(s string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("sort order must be a whole number")
	}
	return nil
}

// Title is the dialog heading.
func (f *EditForm) Title() string {
	if f.Mode == tree.ModeCreate {
		return "New Menu"
	}
	return "Edit Menu"
}

// Init starts the underlying form.
func (f *EditForm) Init() tea.Cmd {
	return f.form.Init()
}

// Update forwards msg to the form.
func (f *EditForm) Update(msg tea.Msg) tea.Cmd {
	m, cmd := f.form.Update(msg)
	if form, ok := m.(*huh.Form); ok {
		f.form = form
	}
	return cmd
}

// View renders the form.
func (f *EditForm) View() string {
	return f.form.View()
}

// Completed reports whether the operator submitted the form.
func (f *EditForm) Completed() bool {
	return f.form.State == huh.StateCompleted
}

// Aborted reports whether the form was cancelled.
func (f *EditForm) Aborted() bool {
	return f.form.State == huh.StateAborted
}

// Input converts the field values into a service payload.
func (f *EditForm) Input() (model.MenuInput, error) {
	if err := validateName(f.name); err != nil {
		return model.MenuInput{}, err
	}
	in := model.MenuInput{
		Name:     strings.TrimSpace(f.name),
		ParentID: model.StringPtr(f.parentID),
	}
	if f.Mode == tree.ModeCreate {
		return in, nil
	}
	if err := validateSortOrder(f.sortOrder); err != nil {
		return model.MenuInput{}, err
	}
	in.SortOrder, _ = strconv.Atoi(strings.TrimSpace(f.sortOrder))
	return in, nil
}

// DeleteConfirm asks before deleting a menu.
type DeleteConfirm struct {
	NodeID string
	Name   string

	confirmed bool
	form      *huh.Form
}

// NewDeleteConfirm builds the yes/no prompt for node.
func NewDeleteConfirm(node model.MenuNode) *DeleteConfirm {
	d := &DeleteConfirm{NodeID: node.ID, Name: node.Name}
	description := "This cannot be undone."
	if n := tree.Count(node.Children); n > 0 {
		description = fmt.Sprintf("Its %d nested menu(s) go with it. This cannot be undone.", n)
	}
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(DeletePrompt(node.Name)).
				Description(description).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&d.confirmed),
		),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(true)
	return d
}

// DeletePrompt is the confirmation question for a menu name.
func DeletePrompt(name string) string {
	return fmt.Sprintf("Delete %q?", name)
}

// Init starts the underlying form.
func (d *DeleteConfirm) Init() tea.Cmd {
	return d.form.Init()
}

// Update forwards msg to the form.
func (d *DeleteConfirm) Update(msg tea.Msg) tea.Cmd {
	m, cmd := d.form.Update(msg)
	if form, ok := m.(*huh.Form); ok {
		d.form = form
	}
	return cmd
}

// View renders the prompt.
func (d *DeleteConfirm) View() string {
	return d.form.View()
}

// Done reports whether the prompt has been answered or aborted.
func (d *DeleteConfirm) Done() bool {
	return d.form.State != huh.StateNormal
}

// Confirmed reports whether the operator answered yes.
func (d *DeleteConfirm) Confirmed() bool {
	return d.form.State == huh.StateCompleted && d.confirmed
}
