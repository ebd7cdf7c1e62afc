package ui

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

func TestCreateFormInput(t *testing.T) {
	f := NewCreateForm(sampleMenus(), "docs")
	if f.Mode != tree.ModeCreate {
		t.Fatalf("mode = %v, want create", f.Mode)
	}
	if f.Title() != "New Menu" {
		t.Errorf("title = %q", f.Title())
	}

	f.name = "  Blog  "
	f.sortOrder = "not used"
	in, err := f.Input()
	if err != nil {
		t.Fatalf("Input failed: %v", err)
	}
	if in.Name != "Blog" {
		t.Errorf("name = %q, want trimmed Blog", in.Name)
	}
	if in.ParentID == nil || *in.ParentID != "docs" {
		t.Errorf("parent = %v, want docs", in.ParentID)
	}
	if in.SortOrder != 0 {
		t.Errorf("create sort order = %d, want 0", in.SortOrder)
	}
}

func TestCreateFormRootParent(t *testing.T) {
	f := NewCreateForm(sampleMenus(), "")
	f.name = "Top"
	in, err := f.Input()
	if err != nil {
		t.Fatalf("Input failed: %v", err)
	}
	if in.ParentID != nil {
		t.Errorf("root menu should have a nil parent, got %q", *in.ParentID)
	}
}

func TestCreateFormRequiresName(t *testing.T) {
	f := NewCreateForm(nil, "")
	f.name = "   "
	if _, err := f.Input(); err == nil {
		t.Error("blank name should be rejected")
	}
}

func TestEditFormPrefill(t *testing.T) {
	menus := sampleMenus()
	guides := menus[1].Children[0]
	f := NewEditForm(menus, guides, false)

	if f.Mode != tree.ModeEdit || f.NodeID != "guides" {
		t.Fatalf("unexpected form identity %v/%q", f.Mode, f.NodeID)
	}
	if f.Title() != "Edit Menu" {
		t.Errorf("title = %q", f.Title())
	}
	if f.name != "Guides" || f.parentID != "docs" || f.sortOrder != "0" {
		t.Errorf("prefill = %q/%q/%q", f.name, f.parentID, f.sortOrder)
	}

	in, err := f.Input()
	if err != nil {
		t.Fatalf("Input failed: %v", err)
	}
	if in.Name != "Guides" || in.ParentID == nil || *in.ParentID != "docs" || in.SortOrder != 0 {
		t.Errorf("unchanged form produced %+v", in)
	}
}

func TestEditFormParentFromNesting(t *testing.T) {
	tests := []struct {
		name string
		node func([]model.MenuNode) model.MenuNode
		want string
	}{
		{"nested without parentId", func(f []model.MenuNode) model.MenuNode { return f[0].Children[0] }, "docs"},
		{"stale parentId", func(f []model.MenuNode) model.MenuNode {
			n := f[0].Children[0]
			n.ParentID = model.StringPtr("elsewhere")
			return n
		}, "docs"},
		{"root with stray parentId", func(f []model.MenuNode) model.MenuNode {
			n := f[0]
			n.ParentID = model.StringPtr("ghost")
			return n
		}, ""},
		{"not in forest", func([]model.MenuNode) model.MenuNode {
			return model.MenuNode{ID: "x", Name: "X", ParentID: model.StringPtr("docs")}
		}, "docs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Nested listing whose children carry no parentId.
			forest := []model.MenuNode{
				{ID: "docs", Name: "Docs", Children: []model.MenuNode{{ID: "guides", Name: "Guides"}}},
			}
			f := NewEditForm(forest, tt.node(forest), false)
			f.name = "Renamed"
			in, err := f.Input()
			if err != nil {
				t.Fatalf("Input failed: %v", err)
			}
			got := ""
			if in.ParentID != nil {
				got = *in.ParentID
			}
			if got != tt.want {
				t.Errorf("submitted parent = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEditFormSortOrder(t *testing.T) {
	menus := sampleMenus()
	f := NewEditForm(menus, menus[0], false)

	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"3", 3, false},
		{" 12 ", 12, false},
		{"-1", -1, false},
		{"1.5", 0, true},
		{"", 0, true},
		{"two", 0, true},
	}
	for _, tt := range tests {
		f.sortOrder = tt.value
		in, err := f.Input()
		if (err != nil) != tt.wantErr {
			t.Errorf("sort order %q: err = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && in.SortOrder != tt.want {
			t.Errorf("sort order %q parsed as %d, want %d", tt.value, in.SortOrder, tt.want)
		}
	}
}

func TestEditFormMoveToRoot(t *testing.T) {
	menus := sampleMenus()
	f := NewEditForm(menus, menus[1].Children[1], false)
	f.parentID = ""
	in, err := f.Input()
	if err != nil {
		t.Fatalf("Input failed: %v", err)
	}
	if in.ParentID != nil {
		t.Error("choosing (root) should submit a nil parent")
	}
}

func TestParentSelectOptions(t *testing.T) {
	opts := parentSelectOptions(tree.ParentOptions(sampleMenus(), tree.ModeEdit, "docs", true))

	if opts[0].Key != rootOptionLabel || opts[0].Value != "" {
		t.Errorf("first option = %q/%q, want the root choice", opts[0].Key, opts[0].Value)
	}
	for _, o := range opts {
		switch o.Value {
		case "docs", "guides", "install", "ref":
			t.Errorf("strict edit of docs should not offer %q", o.Value)
		}
	}
	if len(opts) != 3 {
		t.Errorf("expected root + home + about, got %d options", len(opts))
	}
}

func TestParentSelectOptionsKeepLabels(t *testing.T) {
	opts := parentSelectOptions(tree.ParentOptions(sampleMenus(), tree.ModeCreate, "", false))
	for _, o := range opts {
		if o.Value == "install" && o.Key != tree.Label("Install", 2) {
			t.Errorf("install label = %q", o.Key)
		}
	}
}

func TestValidators(t *testing.T) {
	if validateName("Docs") != nil {
		t.Error("non-blank name should pass")
	}
	if err := validateName(" \t"); err == nil || !strings.Contains(err.Error(), "required") {
		t.Errorf("blank name error = %v", err)
	}
	if validateSortOrder("7") != nil {
		t.Error("integer sort order should pass")
	}
	if validateSortOrder("x") == nil {
		t.Error("non-integer sort order should fail")
	}
}

func TestDeleteConfirm(t *testing.T) {
	menus := sampleMenus()
	d := NewDeleteConfirm(menus[1])
	if d.NodeID != "docs" || d.Name != "Docs" {
		t.Errorf("confirm identity = %q/%q", d.NodeID, d.Name)
	}
	if d.Done() || d.Confirmed() {
		t.Error("fresh prompt should be unanswered")
	}
	if got := DeletePrompt("Docs"); got != `Delete "Docs"?` {
		t.Errorf("DeletePrompt = %q", got)
	}
}
