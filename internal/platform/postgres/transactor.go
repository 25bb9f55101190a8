package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/phrazzld/kanban-api/internal/store"
)

// Transactor implements store.Transactor with a database/sql transaction.
type Transactor struct {
	db     *sql.DB
	tasks  *TaskStore
	logger *slog.Logger
}

var _ store.Transactor = (*Transactor)(nil)

// NewTransactor creates a Transactor on db.
func NewTransactor(db *sql.DB, logger *slog.Logger) *Transactor {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transactor{db: db, tasks: NewTaskStore(db, logger), logger: logger}
}

// Tasks returns a TaskStore that runs outside any transaction.
func (t *Transactor) Tasks() *TaskStore {
	return t.tasks
}

// InTx implements store.Transactor.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context, tasks store.TaskStore) error) error {
	return store.RunInTransaction(ctx, t.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, t.tasks.WithTx(tx))
	})
}
