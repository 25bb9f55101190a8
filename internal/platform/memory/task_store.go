// Package memory provides an in-process TaskStore with transactional
// semantics. Writes are staged per transaction and applied atomically at
// commit; transactions are serialised. It backs the "memory" database driver
// and the tests.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
	"github.com/phrazzld/kanban-api/internal/store"
)

type taskRow struct {
	id          uuid.UUID
	boardID     uuid.UUID
	title       string
	description string
	status      domain.TaskStatus
	position    int
	createdAt   time.Time
	updatedAt   time.Time
}

func rowFromTask(t *domain.Task) taskRow {
	return taskRow{
		id:          t.ID(),
		boardID:     t.BoardID(),
		title:       t.Title(),
		description: t.Description(),
		status:      t.Status(),
		position:    t.Position(),
		createdAt:   t.CreatedAt(),
		updatedAt:   t.UpdatedAt(),
	}
}

func (r taskRow) toTask() (*domain.Task, error) {
	return domain.RestoreTask(
		r.id, r.boardID, r.title, r.description, r.status, r.position, r.createdAt, r.updatedAt,
	)
}

// Option configures a Store.
type Option func(*Store)

// WithBeforeCommit installs a hook that runs right before staged writes are
// applied. A non-nil error aborts the commit.
func WithBeforeCommit(fn func(ctx context.Context) error) Option {
	return func(s *Store) {
		s.beforeCommit = fn
	}
}

// Store keeps tasks in memory. It implements both store.Transactor and
// store.TaskStore; calling a TaskStore method directly runs it in its own
// transaction.
type Store struct {
	mu    sync.RWMutex
	rows  map[uuid.UUID]taskRow
	order []uuid.UUID

	txMu         sync.Mutex
	beforeCommit func(ctx context.Context) error
	logger       *slog.Logger
}

var (
	_ store.Transactor = (*Store)(nil)
	_ store.TaskStore  = (*Store)(nil)
)

// NewStore creates an empty Store.
func NewStore(logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		rows:   make(map[uuid.UUID]taskRow),
		logger: logger.With(slog.String("component", "memory_task_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of committed tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// InTx implements store.Transactor.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tasks store.TaskStore) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	log := logger.FromContextFor(ctx, s.logger, "memory_task_store")
	tx := &txTasks{store: s, staged: make(map[uuid.UUID]*taskRow)}

	if err := fn(ctx, tx); err != nil {
		log.Debug("discarding staged writes", slog.String("error", err.Error()))
		return err
	}

	if err := ctx.Err(); err != nil {
		log.Debug("context done before commit", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %w", store.ErrTransactionFailed, err)
	}
	if s.beforeCommit != nil {
		if err := s.beforeCommit(ctx); err != nil {
			log.Error("commit aborted", slog.String("error", err.Error()))
			return fmt.Errorf("%w: %w", store.ErrTransactionFailed, err)
		}
	}

	s.apply(tx)
	log.Debug("transaction committed", slog.Int("staged_writes", len(tx.staged)))
	return nil
}

func (s *Store) apply(tx *txTasks) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range tx.created {
		if row, ok := tx.staged[id]; ok && row != nil {
			if _, exists := s.rows[id]; !exists {
				s.order = append(s.order, id)
			}
		}
	}
	for id, row := range tx.staged {
		if row == nil {
			delete(s.rows, id)
			s.order = slices.DeleteFunc(s.order, func(v uuid.UUID) bool { return v == id })
			continue
		}
		s.rows[id] = *row
	}
}

// GetByID implements store.TaskStore.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task *domain.Task
	err := s.InTx(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		var err error
		task, err = tasks.GetByID(ctx, id)
		return err
	})
	return task, err
}

// Find implements store.TaskStore.
func (s *Store) Find(ctx context.Context, spec store.TaskSpec) ([]*domain.Task, error) {
	var found []*domain.Task
	err := s.InTx(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		var err error
		found, err = tasks.Find(ctx, spec)
		return err
	})
	return found, err
}

// Create implements store.TaskStore.
func (s *Store) Create(ctx context.Context, task *domain.Task) error {
	return s.InTx(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		return tasks.Create(ctx, task)
	})
}

// Update implements store.TaskStore.
func (s *Store) Update(ctx context.Context, task *domain.Task) error {
	return s.InTx(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		return tasks.Update(ctx, task)
	})
}

// Delete implements store.TaskStore.
func (s *Store) Delete(ctx context.Context, task *domain.Task) error {
	return s.InTx(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		return tasks.Delete(ctx, task)
	})
}

// txTasks is the TaskStore view of one transaction. A nil staged row marks a
// deletion.
type txTasks struct {
	store   *Store
	staged  map[uuid.UUID]*taskRow
	created []uuid.UUID
}

func (t *txTasks) lookup(id uuid.UUID) (taskRow, bool) {
	if row, ok := t.staged[id]; ok {
		if row == nil {
			return taskRow{}, false
		}
		return *row, true
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	row, ok := t.store.rows[id]
	return row, ok
}

func (t *txTasks) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, ok := t.lookup(id)
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return row.toTask()
}

func (t *txTasks) Find(ctx context.Context, spec store.TaskSpec) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.store.mu.RLock()
	ids := slices.Clone(t.store.order)
	t.store.mu.RUnlock()
	ids = append(ids, t.created...)

	all := make([]*domain.Task, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		row, ok := t.lookup(id)
		if !ok {
			continue
		}
		task, err := row.toTask()
		if err != nil {
			return nil, err
		}
		all = append(all, task)
	}
	return spec.Apply(all), nil
}

func (t *txTasks) Create(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if _, exists := t.lookup(task.ID()); exists {
		return fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID())
	}

	row := rowFromTask(task)
	t.staged[task.ID()] = &row
	t.created = append(t.created, task.ID())
	return nil
}

func (t *txTasks) Update(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}
	if _, exists := t.lookup(task.ID()); !exists {
		return store.ErrTaskNotFound
	}

	row := rowFromTask(task)
	t.staged[task.ID()] = &row
	return nil
}

func (t *txTasks) Delete(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, exists := t.lookup(task.ID()); !exists {
		return store.ErrTaskNotFound
	}
	t.staged[task.ID()] = nil
	return nil
}
