package service

import (
	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/domain"
)

// TaskDTO is the read model of a task.
type TaskDTO struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	StatusValue int       `json:"status_value"`
	BoardID     uuid.UUID `json:"board_id"`
	Position    int       `json:"position"`
}

// CreatedTask is returned by CreateTask.
type CreatedTask struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	BoardID uuid.UUID `json:"board_id"`
}

// NewTaskDTO maps a task to its read model. An empty description becomes nil.
func NewTaskDTO(t *domain.Task) TaskDTO {
	var description *string
	if d := t.Description(); d != "" {
		description = &d
	}
	return TaskDTO{
		ID:          t.ID(),
		Title:       t.Title(),
		Description: description,
		Status:      t.Status().Name(),
		StatusValue: t.Status().Rank(),
		BoardID:     t.BoardID(),
		Position:    t.Position(),
	}
}

func newTaskDTOs(tasks []*domain.Task) []TaskDTO {
	dtos := make([]TaskDTO, 0, len(tasks))
	for _, t := range tasks {
		dtos = append(dtos, NewTaskDTO(t))
	}
	return dtos
}
