// Package store is the offline backend: a menuapi.Service on a local SQLite
// file, used for demos, fixtures, and working without the remote service.
package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/menuadmin/pkg/menuapi"
	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
)

const schema = `
CREATE TABLE IF NOT EXISTS menus (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	parent_id  TEXT NULL,
	sort_order INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS menus_parent ON menus(parent_id, sort_order);
`

// subtreeCTE selects the id bound to the first parameter and all of its
// descendants. UNION (not UNION ALL) keeps it finite on corrupt cyclic rows.
const subtreeCTE = `
WITH RECURSIVE subtree(id) AS (
	SELECT id FROM menus WHERE id = ?
	UNION
	SELECT m.id FROM menus m JOIN subtree s ON m.parent_id = s.id
)`

// SQLiteStore implements menuapi.Service on a SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	newID func() string
}

var _ menuapi.Service = (*SQLiteStore)(nil)

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open menu db %s", path)
	}
	// One connection serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	// journal_mode=DELETE: committed writes land in the .db file itself,
	// which is what the file watcher observes.
	for _, pragma := range []string{"PRAGMA journal_mode=DELETE", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "%s", pragma)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "create schema in %s", path)
	}

	return &SQLiteStore{db: db, path: path, newID: uuid.NewString}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file the store was opened on.
func (s *SQLiteStore) Path() string {
	return s.path
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) List(ctx context.Context) ([]model.MenuNode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, parent_id, sort_order FROM menus ORDER BY sort_order, rowid`)
	if err != nil {
		return nil, errors.Wrap(err, "list menus")
	}
	defer rows.Close()

	var flat []model.MenuNode
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		flat = append(flat, node)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list menus")
	}
	return tree.Build(flat), nil
}

func (s *SQLiteStore) Create(ctx context.Context, in model.MenuInput) (model.MenuNode, error) {
	if err := in.Validate(); err != nil {
		return model.MenuNode{}, err
	}

	var node model.MenuNode
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := requireParent(ctx, tx, in.ParentID); err != nil {
			return err
		}
		id := s.newID()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO menus (id, name, parent_id, sort_order) VALUES (?, ?, ?, ?)`,
			id, strings.TrimSpace(in.Name), nullable(in.ParentID), in.SortOrder); err != nil {
			return errors.Wrap(err, "insert menu")
		}
		var err error
		node, err = getNode(ctx, tx, id)
		return err
	})
	return node, err
}

func (s *SQLiteStore) Update(ctx context.Context, id string, in model.MenuInput) (model.MenuNode, error) {
	if err := in.Validate(); err != nil {
		return model.MenuNode{}, err
	}

	var node model.MenuNode
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getNode(ctx, tx, id); err != nil {
			return err
		}
		if err := checkPlacement(ctx, tx, id, in.ParentID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE menus SET name = ?, parent_id = ?, sort_order = ? WHERE id = ?`,
			strings.TrimSpace(in.Name), nullable(in.ParentID), in.SortOrder, id); err != nil {
			return errors.Wrapf(err, "update menu %s", id)
		}
		var err error
		node, err = getNode(ctx, tx, id)
		return err
	})
	return node, err
}

// Delete removes the node and its entire subtree.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getNode(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			subtreeCTE+` DELETE FROM menus WHERE id IN (SELECT id FROM subtree)`, id); err != nil {
			return errors.Wrapf(err, "delete menu %s", id)
		}
		return nil
	})
}

func (s *SQLiteStore) Move(ctx context.Context, id string, p model.Placement) (model.MenuNode, error) {
	var node model.MenuNode
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getNode(ctx, tx, id); err != nil {
			return err
		}
		if err := checkPlacement(ctx, tx, id, p.ParentID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE menus SET parent_id = ?, sort_order = ? WHERE id = ?`,
			nullable(p.ParentID), p.SortOrder, id); err != nil {
			return errors.Wrapf(err, "move menu %s", id)
		}
		var err error
		node, err = getNode(ctx, tx, id)
		return err
	})
	return node, err
}

// Reorder changes only the sort order. The placement's parent must be the
// node's current parent; changing parents is Move's job.
func (s *SQLiteStore) Reorder(ctx context.Context, id string, p model.Placement) (model.MenuNode, error) {
	var node model.MenuNode
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := getNode(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.ParentIDOrEmpty() != derefOrEmpty(p.ParentID) {
			return errors.Mark(
				errors.Newf("reorder of %s names parent %q but it lives under %q",
					id, derefOrEmpty(p.ParentID), current.ParentIDOrEmpty()),
				menuapi.ErrConflict)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE menus SET sort_order = ? WHERE id = ?`, p.SortOrder, id); err != nil {
			return errors.Wrapf(err, "reorder menu %s", id)
		}
		node, err = getNode(ctx, tx, id)
		return err
	})
	return node, err
}

// Seed inserts a nested forest. Nodes without an ID get a fresh one; nodes
// without a sort order get their index among siblings.
func (s *SQLiteStore) Seed(ctx context.Context, forest []model.MenuNode) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.seedLevel(ctx, tx, forest, nil)
	})
}

func (s *SQLiteStore) seedLevel(ctx context.Context, tx *sql.Tx, nodes []model.MenuNode, parentID *string) error {
	for i := range nodes {
		n := &nodes[i]
		if strings.TrimSpace(n.Name) == "" {
			return errors.Newf("seed: menu %q has an empty name", n.ID)
		}
		id := n.ID
		if id == "" {
			id = s.newID()
		}
		order := i
		if n.SortOrder != nil {
			order = *n.SortOrder
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO menus (id, name, parent_id, sort_order) VALUES (?, ?, ?, ?)`,
			id, n.Name, nullable(parentID), order); err != nil {
			return errors.Wrapf(err, "seed menu %q", id)
		}
		if err := s.seedLevel(ctx, tx, n.Children, &id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNode(row scanner) (model.MenuNode, error) {
	var (
		node   model.MenuNode
		parent sql.NullString
		order  int
	)
	if err := row.Scan(&node.ID, &node.Name, &parent, &order); err != nil {
		return model.MenuNode{}, err
	}
	if parent.Valid && parent.String != "" {
		node.ParentID = &parent.String
	}
	node.SortOrder = &order
	return node, nil
}

func getNode(ctx context.Context, q querier, id string) (model.MenuNode, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, name, parent_id, sort_order FROM menus WHERE id = ?`, id)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MenuNode{}, errors.Mark(errors.Newf("menu %q not found", id), menuapi.ErrNotFound)
	}
	if err != nil {
		return model.MenuNode{}, errors.Wrapf(err, "load menu %s", id)
	}
	return node, nil
}

func requireParent(ctx context.Context, q querier, parentID *string) error {
	if parentID == nil || *parentID == "" {
		return nil
	}
	if _, err := getNode(ctx, q, *parentID); err != nil {
		return errors.Wrap(err, "parent")
	}
	return nil
}

// checkPlacement rejects parents that do not exist or that sit inside id's
// own subtree (including id itself).
func checkPlacement(ctx context.Context, q querier, id string, parentID *string) error {
	if err := requireParent(ctx, q, parentID); err != nil {
		return err
	}
	if parentID == nil || *parentID == "" {
		return nil
	}
	var hits int
	if err := q.QueryRowContext(ctx,
		subtreeCTE+` SELECT COUNT(*) FROM subtree WHERE id = ?`, id, *parentID).Scan(&hits); err != nil {
		return errors.Wrapf(err, "check ancestry of %s", id)
	}
	if hits > 0 {
		return errors.Mark(
			errors.Newf("cannot place %s under %s: it is inside its own subtree", id, *parentID),
			menuapi.ErrConflict)
	}
	return nil
}

func nullable(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
