package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
	"github.com/phrazzld/kanban-api/internal/result"
	"github.com/phrazzld/kanban-api/internal/store"
)

// Field names reported in invalid results.
const (
	FieldNewStatus    = "NewStatus"
	FieldFilterStatus = "FilterStatus"
)

// TaskNotFoundMessage is the message of every not-found result.
const TaskNotFoundMessage = "Task not found"

// TaskService provides the task commands and queries.
type TaskService interface {
	// CreateTask adds a task to the ToDo column of a board.
	CreateTask(
		ctx context.Context,
		title string,
		boardID uuid.UUID,
		description *string,
	) (result.Result[CreatedTask], error)

	// UpdateTask replaces the title and description. A nil description clears it.
	UpdateTask(
		ctx context.Context,
		taskID uuid.UUID,
		title string,
		description *string,
	) (result.Result[result.Empty], error)

	// MoveTask moves a task to a status column and position.
	MoveTask(
		ctx context.Context,
		taskID uuid.UUID,
		newStatus string,
		newPosition int,
	) (result.Result[result.Empty], error)

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, taskID uuid.UUID) (result.Result[result.Empty], error)

	// GetTaskByID returns one task.
	GetTaskByID(ctx context.Context, taskID uuid.UUID) (result.Result[TaskDTO], error)

	// GetTasksByBoard lists a board's tasks in column order, then by position.
	// A nil or empty filter returns every column.
	GetTasksByBoard(
		ctx context.Context,
		boardID uuid.UUID,
		filterStatus *string,
	) (result.Result[[]TaskDTO], error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	uow    store.UnitOfWork
	logger *slog.Logger
}

// NewTaskService creates a TaskService. It returns an error if uow is nil.
func NewTaskService(uow store.UnitOfWork, logger *slog.Logger) (TaskService, error) {
	if uow == nil {
		return nil, domain.NewArgumentError("uow", "cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		uow:    uow,
		logger: logger.With(slog.String("component", "task_service")),
	}, nil
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	title string,
	boardID uuid.UUID,
	description *string,
) (result.Result[CreatedTask], error) {
	log := logger.FromContextFor(ctx, s.logger, "task_service")

	task, err := domain.NewTask(title, boardID, deref(description))
	if err != nil {
		log.Warn("rejected task arguments",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return result.Result[CreatedTask]{}, NewTaskServiceError("create_task", "invalid arguments", err)
	}

	err = s.uow.Do(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		return tasks.Create(ctx, task)
	})
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return result.Result[CreatedTask]{}, NewTaskServiceError("create_task", "failed to save task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID().String()),
		slog.String("board_id", boardID.String()))

	return result.Success(CreatedTask{
		ID:      task.ID(),
		Title:   task.Title(),
		BoardID: task.BoardID(),
	}), nil
}

// UpdateTask implements TaskService.UpdateTask
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	taskID uuid.UUID,
	title string,
	description *string,
) (result.Result[result.Empty], error) {
	log := logger.FromContextFor(ctx, s.logger, "task_service")

	res := result.Ok()
	err := s.uow.Do(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		task, err := tasks.GetByID(ctx, taskID)
		if errors.Is(err, store.ErrNotFound) {
			res = result.NotFound[result.Empty](TaskNotFoundMessage)
			return nil
		}
		if err != nil {
			return err
		}

		if err := task.UpdateTitle(title); err != nil {
			return err
		}
		if err := task.UpdateDescription(deref(description)); err != nil {
			return err
		}
		return tasks.Update(ctx, task)
	})
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return result.Result[result.Empty]{}, NewTaskServiceError("update_task", "failed to update task", err)
	}

	log.Debug("update task finished",
		slog.String("task_id", taskID.String()),
		slog.String("outcome", res.Status.String()))
	return res, nil
}

// MoveTask implements TaskService.MoveTask
// A missing task is reported before an unknown status name.
func (s *taskServiceImpl) MoveTask(
	ctx context.Context,
	taskID uuid.UUID,
	newStatus string,
	newPosition int,
) (result.Result[result.Empty], error) {
	log := logger.FromContextFor(ctx, s.logger, "task_service")

	res := result.Ok()
	err := s.uow.Do(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		task, err := tasks.GetByID(ctx, taskID)
		if errors.Is(err, store.ErrNotFound) {
			res = result.NotFound[result.Empty](TaskNotFoundMessage)
			return nil
		}
		if err != nil {
			return err
		}

		status, err := domain.ParseTaskStatus(newStatus)
		if err != nil {
			res = result.Invalid[result.Empty](invalidStatus(FieldNewStatus, newStatus))
			return nil
		}

		err = task.MoveTo(status, newPosition)
		var transitionErr *domain.TransitionError
		if errors.As(err, &transitionErr) {
			res = result.Invalid[result.Empty](result.ValidationError{
				Identifier: FieldNewStatus,
				Message:    transitionErr.Error(),
			})
			return nil
		}
		if err != nil {
			return err
		}

		return tasks.Update(ctx, task)
	})
	if err != nil {
		log.Error("failed to move task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()),
			slog.String("new_status", newStatus))
		return result.Result[result.Empty]{}, NewTaskServiceError("move_task", "failed to move task", err)
	}

	log.Debug("move task finished",
		slog.String("task_id", taskID.String()),
		slog.String("new_status", newStatus),
		slog.Int("new_position", newPosition),
		slog.String("outcome", res.Status.String()))
	return res, nil
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskServiceImpl) DeleteTask(
	ctx context.Context,
	taskID uuid.UUID,
) (result.Result[result.Empty], error) {
	log := logger.FromContextFor(ctx, s.logger, "task_service")

	res := result.Ok()
	err := s.uow.Do(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		task, err := tasks.GetByID(ctx, taskID)
		if errors.Is(err, store.ErrNotFound) {
			res = result.NotFound[result.Empty](TaskNotFoundMessage)
			return nil
		}
		if err != nil {
			return err
		}

		task.MarkDeleted()
		return tasks.Delete(ctx, task)
	})
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return result.Result[result.Empty]{}, NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	log.Debug("delete task finished",
		slog.String("task_id", taskID.String()),
		slog.String("outcome", res.Status.String()))
	return res, nil
}

// GetTaskByID implements TaskService.GetTaskByID
func (s *taskServiceImpl) GetTaskByID(
	ctx context.Context,
	taskID uuid.UUID,
) (result.Result[TaskDTO], error) {
	log := logger.FromContextFor(ctx, s.logger, "task_service")

	var res result.Result[TaskDTO]
	err := s.uow.Do(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		task, err := tasks.GetByID(ctx, taskID)
		if errors.Is(err, store.ErrNotFound) {
			res = result.NotFound[TaskDTO](TaskNotFoundMessage)
			return nil
		}
		if err != nil {
			return err
		}
		res = result.Success(NewTaskDTO(task))
		return nil
	})
	if err != nil {
		log.Error("failed to get task",
			slog.String("error", err.Error()),
			slog.String("task_id", taskID.String()))
		return result.Result[TaskDTO]{}, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}

	return res, nil
}

// GetTasksByBoard implements TaskService.GetTasksByBoard
func (s *taskServiceImpl) GetTasksByBoard(
	ctx context.Context,
	boardID uuid.UUID,
	filterStatus *string,
) (result.Result[[]TaskDTO], error) {
	log := logger.FromContextFor(ctx, s.logger, "task_service")

	var status *domain.TaskStatus
	if name := deref(filterStatus); name != "" {
		parsed, err := domain.ParseTaskStatus(name)
		if err != nil {
			return result.Invalid[[]TaskDTO](invalidStatus(FieldFilterStatus, name)), nil
		}
		status = &parsed
	}

	var found []*domain.Task
	err := s.uow.Do(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		var err error
		found, err = tasks.Find(ctx, store.TasksByBoardSpec(boardID, status))
		return err
	})
	if err != nil {
		log.Error("failed to list board tasks",
			slog.String("error", err.Error()),
			slog.String("board_id", boardID.String()))
		return result.Result[[]TaskDTO]{}, NewTaskServiceError("get_tasks_by_board", "failed to list tasks", err)
	}

	store.SortForBoard(found)

	log.Debug("board tasks retrieved",
		slog.String("board_id", boardID.String()),
		slog.Int("count", len(found)))
	return result.Success(newTaskDTOs(found)), nil
}

func invalidStatus(field, value string) result.ValidationError {
	return result.ValidationError{
		Identifier: field,
		Message: fmt.Sprintf(
			"invalid status '%s'. Valid values are: %s",
			value,
			domain.ValidStatusNames(),
		),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
