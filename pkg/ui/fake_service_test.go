package ui

import (
	"context"
	"fmt"
	"sync"

	"github.com/vanderheijden86/menuadmin/pkg/menuapi"
	"github.com/vanderheijden86/menuadmin/pkg/model"
)

// fakeService is an in-memory menuapi.Service that records every mutation.
type fakeService struct {
	mu        sync.Mutex
	forest    []model.MenuNode
	listErr   error
	writeErr  error
	listPanic bool
	lists     int
	calls     []string
	nextID    int
}

var _ menuapi.Service = (*fakeService)(nil)

func newFakeService(forest []model.MenuNode) *fakeService {
	return &fakeService{forest: forest}
}

func (f *fakeService) setForest(forest []model.MenuNode) {
	f.mu.Lock()
	f.forest = forest
	f.mu.Unlock()
}

func (f *fakeService) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lists
}

func (f *fakeService) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeService) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.writeErr
}

func (f *fakeService) List(ctx context.Context) ([]model.MenuNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listPanic {
		panic("list exploded")
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]model.MenuNode, len(f.forest))
	for i := range f.forest {
		out[i] = f.forest[i].Clone()
	}
	return out, nil
}

func (f *fakeService) Create(ctx context.Context, in model.MenuInput) (model.MenuNode, error) {
	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("new%d", f.nextID)
	f.mu.Unlock()
	if err := f.record(fmt.Sprintf("create %s parent=%s", in.Name, deref(in.ParentID))); err != nil {
		return model.MenuNode{}, err
	}
	return model.MenuNode{ID: id, Name: in.Name, ParentID: in.ParentID, SortOrder: model.IntPtr(in.SortOrder)}, nil
}

func (f *fakeService) Update(ctx context.Context, id string, in model.MenuInput) (model.MenuNode, error) {
	if err := f.record(fmt.Sprintf("update %s name=%s parent=%s order=%d", id, in.Name, deref(in.ParentID), in.SortOrder)); err != nil {
		return model.MenuNode{}, err
	}
	return model.MenuNode{ID: id, Name: in.Name, ParentID: in.ParentID, SortOrder: model.IntPtr(in.SortOrder)}, nil
}

func (f *fakeService) Delete(ctx context.Context, id string) error {
	return f.record("delete " + id)
}

func (f *fakeService) Move(ctx context.Context, id string, p model.Placement) (model.MenuNode, error) {
	if err := f.record(fmt.Sprintf("move %s parent=%s order=%d", id, deref(p.ParentID), p.SortOrder)); err != nil {
		return model.MenuNode{}, err
	}
	return model.MenuNode{ID: id, ParentID: p.ParentID, SortOrder: model.IntPtr(p.SortOrder)}, nil
}

func (f *fakeService) Reorder(ctx context.Context, id string, p model.Placement) (model.MenuNode, error) {
	if err := f.record(fmt.Sprintf("reorder %s parent=%s order=%d", id, deref(p.ParentID), p.SortOrder)); err != nil {
		return model.MenuNode{}, err
	}
	return model.MenuNode{ID: id, ParentID: p.ParentID, SortOrder: model.IntPtr(p.SortOrder)}, nil
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

// sampleMenus is Home, Docs > (Guides > Install, Reference), About.
func sampleMenus() []model.MenuNode {
	return []model.MenuNode{
		{ID: "home", Name: "Home", SortOrder: model.IntPtr(0)},
		{ID: "docs", Name: "Docs", SortOrder: model.IntPtr(1), Children: []model.MenuNode{
			{ID: "guides", Name: "Guides", ParentID: model.StringPtr("docs"), SortOrder: model.IntPtr(0), Children: []model.MenuNode{
				{ID: "install", Name: "Install", ParentID: model.StringPtr("guides"), SortOrder: model.IntPtr(0)},
			}},
			{ID: "ref", Name: "Reference", ParentID: model.StringPtr("docs"), SortOrder: model.IntPtr(1)},
		}},
		{ID: "about", Name: "About", SortOrder: model.IntPtr(2)},
	}
}
