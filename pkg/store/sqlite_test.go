package store

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanderheijden86/menuadmin/pkg/menuapi"
	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "menus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	next := 0
	s.newID = func() string {
		next++
		return "id" + strconv.Itoa(next)
	}
	return s
}

func seedForest() []model.MenuNode {
	return []model.MenuNode{
		{ID: "home", Name: "Home"},
		{ID: "docs", Name: "Docs", Children: []model.MenuNode{
			{ID: "guides", Name: "Guides", Children: []model.MenuNode{
				{ID: "install", Name: "Install"},
			}},
			{ID: "ref", Name: "Reference"},
		}},
	}
}

func seeded(t *testing.T) *SQLiteStore {
	t.Helper()
	s := openTestStore(t)
	require.NoError(t, s.Seed(context.Background(), seedForest()))
	return s
}

func ids(forest []model.MenuNode) []string {
	var out []string
	for _, opt := range tree.Flatten(forest) {
		out = append(out, opt.ID)
	}
	return out
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)
	forest, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, forest)
	assert.Equal(t, "menus.db", filepath.Base(s.Path()))
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "menus.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Seed(context.Background(), seedForest()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	forest, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "docs", "guides", "install", "ref"}, ids(forest))
}

func TestSeedAndListNested(t *testing.T) {
	s := seeded(t)
	forest, err := s.List(context.Background())
	require.NoError(t, err)

	require.Len(t, forest, 2)
	assert.Equal(t, []string{"home", "docs", "guides", "install", "ref"}, ids(forest))
	assert.Equal(t, "docs", forest[1].Children[0].ParentIDOrEmpty())
	assert.Equal(t, 1, forest[1].Children[1].SortOrderOrZero())
}

func TestCreate(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	root, err := s.Create(ctx, model.MenuInput{Name: "  Blog "})
	require.NoError(t, err)
	assert.Equal(t, "id1", root.ID)
	assert.Equal(t, "Blog", root.Name)
	assert.True(t, root.IsRoot())

	child, err := s.Create(ctx, model.MenuInput{Name: "FAQ", ParentID: model.StringPtr("docs"), SortOrder: 9})
	require.NoError(t, err)
	assert.Equal(t, "docs", child.ParentIDOrEmpty())

	forest, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "id1", "docs", "guides", "install", "ref", "id2"}, ids(forest))
}

func TestCreateErrors(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	_, err := s.Create(ctx, model.MenuInput{Name: ""})
	require.Error(t, err)

	_, err = s.Create(ctx, model.MenuInput{Name: "x", ParentID: model.StringPtr("missing")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, menuapi.ErrNotFound))
}

func TestUpdate(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	node, err := s.Update(ctx, "ref", model.MenuInput{Name: "API Reference", ParentID: model.StringPtr("guides"), SortOrder: 0})
	require.NoError(t, err)
	assert.Equal(t, "API Reference", node.Name)
	assert.Equal(t, "guides", node.ParentIDOrEmpty())

	_, err = s.Update(ctx, "nope", model.MenuInput{Name: "x"})
	assert.True(t, errors.Is(err, menuapi.ErrNotFound))
}

func TestUpdateRejectsCycle(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	_, err := s.Update(ctx, "docs", model.MenuInput{Name: "Docs", ParentID: model.StringPtr("install")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, menuapi.ErrConflict))

	_, err = s.Update(ctx, "docs", model.MenuInput{Name: "Docs", ParentID: model.StringPtr("docs")})
	assert.True(t, errors.Is(err, menuapi.ErrConflict))
}

func TestDeleteRemovesSubtree(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "docs"))
	forest, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, ids(forest))

	err = s.Delete(ctx, "docs")
	assert.True(t, errors.Is(err, menuapi.ErrNotFound))
}

func TestMove(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	node, err := s.Move(ctx, "install", model.Placement{SortOrder: 5})
	require.NoError(t, err)
	assert.True(t, node.IsRoot())
	assert.Equal(t, 5, node.SortOrderOrZero())

	node, err = s.Move(ctx, "home", model.Placement{ParentID: model.StringPtr("ref")})
	require.NoError(t, err)
	assert.Equal(t, "ref", node.ParentIDOrEmpty())

	forest, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs", "guides", "ref", "home", "install"}, ids(forest))
}

func TestMoveRejectsDescendantParent(t *testing.T) {
	s := seeded(t)
	_, err := s.Move(context.Background(), "docs", model.Placement{ParentID: model.StringPtr("guides")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, menuapi.ErrConflict))

	_, err = s.Move(context.Background(), "docs", model.Placement{ParentID: model.StringPtr("ghost")})
	assert.True(t, errors.Is(err, menuapi.ErrNotFound))
}

func TestReorder(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	err := menuapi.ReorderSiblings(ctx, s, []menuapi.Reordering{
		{ID: "guides", Placement: model.Placement{ParentID: model.StringPtr("docs"), SortOrder: 1}},
		{ID: "ref", Placement: model.Placement{ParentID: model.StringPtr("docs"), SortOrder: 0}},
	})
	require.NoError(t, err)

	forest, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"home", "docs", "ref", "guides", "install"}, ids(forest))
}

func TestReorderRejectsParentChange(t *testing.T) {
	s := seeded(t)
	_, err := s.Reorder(context.Background(), "ref", model.Placement{SortOrder: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, menuapi.ErrConflict))
}

func TestSeedRejectsEmptyName(t *testing.T) {
	s := openTestStore(t)
	err := s.Seed(context.Background(), []model.MenuNode{{ID: "a", Name: " "}})
	require.Error(t, err)

	forest, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, forest, "failed seed must roll back")
}
