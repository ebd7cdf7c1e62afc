package ui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/menuadmin/pkg/menuapi"
	"github.com/vanderheijden86/menuadmin/pkg/model"
)

// MenuOperation represents the type of mutation performed
type MenuOperation int

const (
	MenuOpCreate MenuOperation = iota
	MenuOpUpdate
	MenuOpDelete
	MenuOpMove
	MenuOpReorder
)

func (op MenuOperation) String() string {
	switch op {
	case MenuOpCreate:
		return "create"
	case MenuOpUpdate:
		return "update"
	case MenuOpDelete:
		return "delete"
	case MenuOpMove:
		return "move"
	case MenuOpReorder:
		return "reorder"
	default:
		return "unknown"
	}
}

// MenuResultMsg is returned after a mutation completes
type MenuResultMsg struct {
	Operation MenuOperation
	NodeID    string
	Success   bool
	Error     error
}

// StatusText is the status bar line for the result.
func (m MenuResultMsg) StatusText() string {
	if m.Success {
		switch m.Operation {
		case MenuOpCreate:
			return "Created!"
		case MenuOpUpdate:
			return "Updated!"
		case MenuOpDelete:
			return "Deleted!"
		case MenuOpMove:
			return "Moved!"
		case MenuOpReorder:
			return "Reordered!"
		}
		return "Done!"
	}

	verb := m.Operation.String()
	if m.Operation == MenuOpCreate || m.Operation == MenuOpUpdate {
		verb = "save"
	}
	if m.Error == nil {
		return fmt.Sprintf("Failed to %s.", verb)
	}
	return fmt.Sprintf("Failed to %s: %v", verb, m.Error)
}

// DefaultWriteTimeout bounds a single mutation.
const DefaultWriteTimeout = 30 * time.Second

// MenuWriter turns Service calls into tea.Cmds
type MenuWriter struct {
	svc     menuapi.Service
	timeout time.Duration
}

// NewMenuWriter creates a writer over svc. A nil svc yields a writer whose
// commands all fail.
func NewMenuWriter(svc menuapi.Service) *MenuWriter {
	return &MenuWriter{svc: svc, timeout: DefaultWriteTimeout}
}

// IsAvailable returns whether a backend is attached
func (w *MenuWriter) IsAvailable() bool {
	return w.svc != nil
}

// Create submits a new menu. The result carries the created id.
func (w *MenuWriter) Create(in model.MenuInput) tea.Cmd {
	return w.run(MenuOpCreate, "", func(ctx context.Context) (string, error) {
		node, err := w.svc.Create(ctx, in)
		return node.ID, err
	})
}

// Update replaces the menu's name, parent and sort order.
func (w *MenuWriter) Update(id string, in model.MenuInput) tea.Cmd {
	return w.run(MenuOpUpdate, id, func(ctx context.Context) (string, error) {
		_, err := w.svc.Update(ctx, id, in)
		return id, err
	})
}

// Delete removes the menu.
func (w *MenuWriter) Delete(id string) tea.Cmd {
	return w.run(MenuOpDelete, id, func(ctx context.Context) (string, error) {
		return id, w.svc.Delete(ctx, id)
	})
}

// Move reparents the menu.
func (w *MenuWriter) Move(id string, p model.Placement) tea.Cmd {
	return w.run(MenuOpMove, id, func(ctx context.Context) (string, error) {
		_, err := w.svc.Move(ctx, id, p)
		return id, err
	})
}

// Reorder applies several sibling reorders concurrently. id is the node the
// operator acted on and is reported back for reselection.
func (w *MenuWriter) Reorder(id string, moves []menuapi.Reordering) tea.Cmd {
	return w.run(MenuOpReorder, id, func(ctx context.Context) (string, error) {
		return id, menuapi.ReorderSiblings(ctx, w.svc, moves)
	})
}

func (w *MenuWriter) run(op MenuOperation, id string, fn func(ctx context.Context) (string, error)) tea.Cmd {
	if !w.IsAvailable() {
		return w.unavailableCmd(op, id)
	}
	timeout := w.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		resultID, err := fn(ctx)
		if resultID == "" {
			resultID = id
		}
		return MenuResultMsg{
			Operation: op,
			NodeID:    resultID,
			Success:   err == nil,
			Error:     err,
		}
	}
}

// unavailableCmd returns a command that immediately reports no backend
func (w *MenuWriter) unavailableCmd(op MenuOperation, id string) tea.Cmd {
	return func() tea.Msg {
		return MenuResultMsg{
			Operation: op,
			NodeID:    id,
			Success:   false,
			Error:     fmt.Errorf("no menu backend configured"),
		}
	}
}
