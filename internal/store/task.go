package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/domain"
)

// TaskStore defines the interface for task persistence.
type TaskStore interface {
	// GetByID returns the task or ErrTaskNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Find returns every task matching spec, ordered as spec requests.
	Find(ctx context.Context, spec TaskSpec) ([]*domain.Task, error)

	// Create inserts a new task. The task is validated first.
	Create(ctx context.Context, task *domain.Task) error

	// Update overwrites an existing task (last writer wins).
	// Returns ErrTaskNotFound if the row is gone.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes the task. Returns ErrTaskNotFound if the row is gone.
	Delete(ctx context.Context, task *domain.Task) error
}

// Transactor runs fn against a TaskStore bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tasks TaskStore) error) error
}

// UnitOfWork scopes one business operation: everything fn does through the
// given store commits together, and the events raised by the aggregates it
// touched are published only after that commit succeeds.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tasks TaskStore) error) error
}
