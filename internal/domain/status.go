package domain

import (
	"fmt"
	"strings"
)

// TaskStatus is the workflow column a task sits in. The underlying integer is
// the persisted rank; the zero value is not a valid status.
type TaskStatus int

// Possible task status values
const (
	TaskStatusToDo       TaskStatus = 1
	TaskStatusInProgress TaskStatus = 2
	TaskStatusDone       TaskStatus = 3
)

var statusNames = map[TaskStatus]string{
	TaskStatusToDo:       "ToDo",
	TaskStatusInProgress: "InProgress",
	TaskStatusDone:       "Done",
}

// AllTaskStatuses returns every status in display order.
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusToDo, TaskStatusInProgress, TaskStatusDone}
}

// ValidStatusNames returns the status names in display order, joined for
// user-facing messages.
func ValidStatusNames() string {
	statuses := AllTaskStatuses()
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.Name()
	}
	return strings.Join(names, ", ")
}

// ParseTaskStatus looks a status up by its exact, case-sensitive name.
func ParseTaskStatus(name string) (TaskStatus, error) {
	for _, s := range AllTaskStatuses() {
		if s.Name() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, name)
}

// TaskStatusFromRank looks a status up by its persisted rank.
func TaskStatusFromRank(rank int) (TaskStatus, error) {
	s := TaskStatus(rank)
	if !s.IsValid() {
		return 0, fmt.Errorf("%w: rank %d", ErrInvalidStatus, rank)
	}
	return s, nil
}

// IsValid reports whether s is one of the three defined statuses.
func (s TaskStatus) IsValid() bool {
	_, ok := statusNames[s]
	return ok
}

// Name returns the canonical status name, or an empty string for an invalid
// status.
func (s TaskStatus) Name() string {
	return statusNames[s]
}

// String implements fmt.Stringer.
func (s TaskStatus) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TaskStatus(%d)", int(s))
}

// Rank returns the persisted integer value.
func (s TaskStatus) Rank() int {
	return int(s)
}

// DisplayOrder returns the column index used when listing tasks, or -1 for an
// invalid status.
func (s TaskStatus) DisplayOrder() int {
	if !s.IsValid() {
		return -1
	}
	return int(s) - 1
}

// CanTransitionTo reports whether a task may move from s to target.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	return CanTransition(s, target)
}

// CanTransition is the workflow rule: every move between valid statuses is
// allowed, including staying put and moving backwards, except skipping from
// ToDo straight to Done.
func CanTransition(current, target TaskStatus) bool {
	if !current.IsValid() || !target.IsValid() {
		return false
	}
	return !(current == TaskStatusToDo && target == TaskStatusDone)
}

// MarshalText encodes the status as its name.
func (s TaskStatus) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidStatus, int(s))
	}
	return []byte(s.Name()), nil
}

// UnmarshalText decodes a status from its name.
func (s *TaskStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseTaskStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
