// Package menuapi talks to the remote menu service. The service owns all
// persistence; this package only issues the six calls the admin needs and
// decodes their results.
package menuapi

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/menuadmin/pkg/model"
)

// Service is the set of remote operations on menus. Client implements it
// over HTTP; store.SQLiteStore implements it on a local database.
type Service interface {
	// List returns the whole menu forest, nested.
	List(ctx context.Context) ([]model.MenuNode, error)
	Create(ctx context.Context, in model.MenuInput) (model.MenuNode, error)
	Update(ctx context.Context, id string, in model.MenuInput) (model.MenuNode, error)
	Delete(ctx context.Context, id string) error
	// Move changes a node's parent.
	Move(ctx context.Context, id string, p model.Placement) (model.MenuNode, error)
	// Reorder changes a node's position among its siblings.
	Reorder(ctx context.Context, id string, p model.Placement) (model.MenuNode, error)
}

// Reordering is one pending Reorder call.
type Reordering struct {
	ID        string
	Placement model.Placement
}

// maxConcurrentReorders bounds parallel reorder requests.
const maxConcurrentReorders = 4

// ReorderSiblings issues the reorder calls concurrently and returns the
// first error. Calls already in flight are cancelled through ctx.
func ReorderSiblings(ctx context.Context, svc Service, moves []Reordering) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReorders)
	for _, mv := range moves {
		g.Go(func() error {
			_, err := svc.Reorder(ctx, mv.ID, mv.Placement)
			return err
		})
	}
	return g.Wait()
}
