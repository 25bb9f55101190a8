package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event names used for handler registration.
const (
	EventTaskStatusChanged = "task.status_changed"
	EventTaskDeleted       = "task.deleted"
)

// Event is a notification raised by an aggregate when its state changes.
// Events are buffered on the aggregate and only dispatched after the change
// has been committed.
type Event interface {
	EventName() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

// Aggregate is implemented by entities that buffer events.
type Aggregate interface {
	PendingEvents() []Event
	ClearEvents()
}

// TaskStatusChanged is raised once per successful Task.MoveTo.
type TaskStatusChanged struct {
	TaskID    uuid.UUID  `json:"task_id"`
	BoardID   uuid.UUID  `json:"board_id"`
	From      TaskStatus `json:"from"`
	To        TaskStatus `json:"to"`
	ChangedAt time.Time  `json:"changed_at"`
}

// EventName implements Event.
func (e TaskStatusChanged) EventName() string { return EventTaskStatusChanged }

// AggregateID implements Event.
func (e TaskStatusChanged) AggregateID() uuid.UUID { return e.TaskID }

// OccurredAt implements Event.
func (e TaskStatusChanged) OccurredAt() time.Time { return e.ChangedAt }

// TaskDeleted is raised when a task is marked for deletion.
type TaskDeleted struct {
	TaskID    uuid.UUID  `json:"task_id"`
	BoardID   uuid.UUID  `json:"board_id"`
	Status    TaskStatus `json:"status"`
	DeletedAt time.Time  `json:"deleted_at"`
}

// EventName implements Event.
func (e TaskDeleted) EventName() string { return EventTaskDeleted }

// AggregateID implements Event.
func (e TaskDeleted) AggregateID() uuid.UUID { return e.TaskID }

// OccurredAt implements Event.
func (e TaskDeleted) OccurredAt() time.Time { return e.DeletedAt }
