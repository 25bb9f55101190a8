package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Field limits shared with the persistence schema.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000

	// MaxPosition is the largest position the INTEGER column can hold.
	MaxPosition = math.MaxInt32
)

// Task is a work item on a board. It is the aggregate root: all state changes
// go through its methods, which enforce the invariants and buffer the
// resulting events until the unit of work commits.
//
// A Task is not safe for concurrent use.
type Task struct {
	id          uuid.UUID
	boardID     uuid.UUID
	title       string
	description string
	status      TaskStatus
	position    int
	createdAt   time.Time
	updatedAt   time.Time

	events []Event
}

// NewTask creates a task in the ToDo column at position 0.
func NewTask(title string, boardID uuid.UUID, description string) (*Task, error) {
	if boardID == uuid.Nil {
		return nil, NewArgumentError("board_id", "cannot be empty")
	}
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Task{
		id:          uuid.New(),
		boardID:     boardID,
		title:       title,
		description: description,
		status:      TaskStatusToDo,
		position:    0,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// RestoreTask rebuilds a task from persisted state. The result has no pending
// events. Storage backends use it; application code should call NewTask.
func RestoreTask(
	id, boardID uuid.UUID,
	title, description string,
	status TaskStatus,
	position int,
	createdAt, updatedAt time.Time,
) (*Task, error) {
	t := &Task{
		id:          id,
		boardID:     boardID,
		title:       title,
		description: description,
		status:      status,
		position:    position,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks every invariant of the task.
func (t *Task) Validate() error {
	if t.id == uuid.Nil {
		return NewArgumentError("id", "cannot be empty")
	}
	if t.boardID == uuid.Nil {
		return NewArgumentError("board_id", "cannot be empty")
	}
	if err := validateTitle(t.title); err != nil {
		return err
	}
	if err := validateDescription(t.description); err != nil {
		return err
	}
	if !t.status.IsValid() {
		return NewArgumentError("status", fmt.Sprintf("unknown status %d", int(t.status)))
	}
	if err := validatePosition(t.position); err != nil {
		return err
	}
	return nil
}

// ID returns the task's identifier.
func (t *Task) ID() uuid.UUID { return t.id }

// BoardID returns the board the task belongs to.
func (t *Task) BoardID() uuid.UUID { return t.boardID }

// Title returns the task title.
func (t *Task) Title() string { return t.title }

// Description returns the description, or an empty string when absent.
func (t *Task) Description() string { return t.description }

// Status returns the current workflow status.
func (t *Task) Status() TaskStatus { return t.status }

// Position returns the ordering position within the status column.
func (t *Task) Position() int { return t.position }

// CreatedAt returns the creation timestamp.
func (t *Task) CreatedAt() time.Time { return t.createdAt }

// UpdatedAt returns the time of the last successful mutation.
func (t *Task) UpdatedAt() time.Time { return t.updatedAt }

// UpdateTitle replaces the title. Setting the current value is a no-op.
func (t *Task) UpdateTitle(title string) error {
	if err := validateTitle(title); err != nil {
		return err
	}
	if title == t.title {
		return nil
	}
	t.title = title
	t.touch()
	return nil
}

// UpdateDescription replaces the description. An empty string clears it.
func (t *Task) UpdateDescription(description string) error {
	if err := validateDescription(description); err != nil {
		return err
	}
	if description == t.description {
		return nil
	}
	t.description = description
	t.touch()
	return nil
}

// UpdatePosition moves the task within its current column.
func (t *Task) UpdatePosition(position int) error {
	if err := validatePosition(position); err != nil {
		return err
	}
	if position == t.position {
		return nil
	}
	t.position = position
	t.touch()
	return nil
}

// MoveTo changes the status and position together and buffers a
// TaskStatusChanged event. On error nothing is modified.
func (t *Task) MoveTo(status TaskStatus, position int) error {
	if err := validatePosition(position); err != nil {
		return err
	}
	if !status.IsValid() {
		return NewArgumentError("status", fmt.Sprintf("unknown status %d", int(status)))
	}
	if !t.status.CanTransitionTo(status) {
		return &TransitionError{From: t.status, To: status}
	}

	from := t.status
	t.status = status
	t.position = position
	t.touch()

	t.events = append(t.events, TaskStatusChanged{
		TaskID:    t.id,
		BoardID:   t.boardID,
		From:      from,
		To:        status,
		ChangedAt: t.updatedAt,
	})
	return nil
}

// MarkDeleted buffers a TaskDeleted event. The caller is expected to remove
// the task through the store in the same unit of work.
func (t *Task) MarkDeleted() {
	t.events = append(t.events, TaskDeleted{
		TaskID:    t.id,
		BoardID:   t.boardID,
		Status:    t.status,
		DeletedAt: time.Now().UTC(),
	})
}

// PendingEvents returns a copy of the buffered events in the order they were
// raised.
func (t *Task) PendingEvents() []Event {
	if len(t.events) == 0 {
		return nil
	}
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// ClearEvents empties the event buffer.
func (t *Task) ClearEvents() {
	t.events = nil
}

func (t *Task) touch() {
	now := time.Now().UTC()
	// keep UpdatedAt monotonic even if the wall clock steps back
	if !now.After(t.updatedAt) {
		now = t.updatedAt.Add(time.Microsecond)
	}
	t.updatedAt = now
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return NewArgumentError("title", "cannot be empty")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return NewArgumentError("title", fmt.Sprintf("must be at most %d characters", MaxTitleLength))
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return NewArgumentError(
			"description",
			fmt.Sprintf("must be at most %d characters", MaxDescriptionLength),
		)
	}
	return nil
}

func validatePosition(position int) error {
	if position < 0 {
		return NewArgumentError("position", "cannot be negative")
	}
	if position > MaxPosition {
		return NewArgumentError("position", fmt.Sprintf("must be at most %d", MaxPosition))
	}
	return nil
}
