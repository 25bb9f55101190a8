package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
	"github.com/phrazzld/kanban-api/internal/store"
)

const taskColumns = `id, board_id, title, description, status, position, created_at, updated_at`

// TaskStore implements store.TaskStore on PostgreSQL. Status is stored as its
// integer rank and an empty description as NULL.
type TaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a TaskStore over a connection or transaction owned by
// the caller. If logger is nil, a default logger will be used.
func NewTaskStore(db store.DBTX, logger *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// WithTx returns a TaskStore that runs its queries on tx.
func (s *TaskStore) WithTx(tx *sql.Tx) *TaskStore {
	return &TaskStore{db: tx, logger: s.logger}
}

// GetByID implements store.TaskStore.GetByID.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextFor(ctx, s.logger, "task_store")

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, store.NewStoreError("task", "get", "query failed", MapError(err))
	}

	return task, nil
}

// Find implements store.TaskStore.Find. Rows that tie on every sort key come
// back in creation order.
func (s *TaskStore) Find(ctx context.Context, spec store.TaskSpec) ([]*domain.Task, error) {
	log := logger.FromContextFor(ctx, s.logger, "task_store")

	where, orderBy, args := spec.SQL(1)
	query := `SELECT ` + taskColumns + ` FROM tasks`
	if where != "" {
		query += ` WHERE ` + where
	}
	if orderBy != "" {
		query += ` ORDER BY ` + orderBy + `, created_at ASC, id ASC`
	} else {
		query += ` ORDER BY created_at ASC, id ASC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "find", "query failed", MapError(err))
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, store.NewStoreError("task", "find", "scan failed", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "find", "row iteration failed", MapError(err))
	}

	log.Debug("tasks retrieved", slog.Int("count", len(tasks)))
	return tasks, nil
}

// Create implements store.TaskStore.Create.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextFor(ctx, s.logger, "task_store")

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID().String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID(),
		task.BoardID(),
		task.Title(),
		nullableDescription(task.Description()),
		task.Status().Rank(),
		task.Position(),
		task.CreatedAt(),
		task.UpdatedAt(),
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID().String()))
		return store.NewStoreError("task", "create", "insert failed", MapError(err))
	}

	log.Debug("task created",
		slog.String("task_id", task.ID().String()),
		slog.String("board_id", task.BoardID().String()))
	return nil
}

// Update implements store.TaskStore.Update.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextFor(ctx, s.logger, "task_store")

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID().String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, position = $4, updated_at = $5
		WHERE id = $6
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title(),
		nullableDescription(task.Description()),
		task.Status().Rank(),
		task.Position(),
		task.UpdatedAt(),
		task.ID(),
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID().String()))
		return store.NewStoreError("task", "update", "update failed", MapError(err))
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrTaskNotFound
		}
		return store.NewStoreError("task", "update", "rows affected", err)
	}
	return nil
}

// Delete implements store.TaskStore.Delete.
func (s *TaskStore) Delete(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextFor(ctx, s.logger, "task_store")

	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, task.ID())
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID().String()))
		return store.NewStoreError("task", "delete", "delete failed", MapError(err))
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrTaskNotFound
		}
		return store.NewStoreError("task", "delete", "rows affected", err)
	}

	log.Debug("task deleted", slog.String("task_id", task.ID().String()))
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		id, boardID          uuid.UUID
		title                string
		description          sql.NullString
		rank, position       int
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &boardID, &title, &description, &rank, &position, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	status, err := domain.TaskStatusFromRank(rank)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	task, err := domain.RestoreTask(
		id, boardID, title, description.String, status, position,
		createdAt.UTC(), updatedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", id, err)
	}
	return task, nil
}

func nullableDescription(description string) sql.NullString {
	return sql.NullString{String: description, Valid: description != ""}
}
