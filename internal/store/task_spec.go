package store

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/domain"
)

type predicateKind int

const (
	predicateByID predicateKind = iota + 1
	predicateByBoard
	predicateByStatus
)

// TaskPredicate is a single filter condition of a TaskSpec.
type TaskPredicate struct {
	kind   predicateKind
	id     uuid.UUID
	status domain.TaskStatus
}

// ByID matches the task with the given id.
func ByID(id uuid.UUID) TaskPredicate {
	return TaskPredicate{kind: predicateByID, id: id}
}

// ByBoard matches tasks on the given board.
func ByBoard(boardID uuid.UUID) TaskPredicate {
	return TaskPredicate{kind: predicateByBoard, id: boardID}
}

// ByStatus matches tasks in the given status.
func ByStatus(status domain.TaskStatus) TaskPredicate {
	return TaskPredicate{kind: predicateByStatus, status: status}
}

func (p TaskPredicate) matches(t *domain.Task) bool {
	switch p.kind {
	case predicateByID:
		return t.ID() == p.id
	case predicateByBoard:
		return t.BoardID() == p.id
	case predicateByStatus:
		return t.Status() == p.status
	default:
		return false
	}
}

func (p TaskPredicate) sql(arg int) (string, any) {
	switch p.kind {
	case predicateByID:
		return fmt.Sprintf("id = $%d", arg), p.id
	case predicateByBoard:
		return fmt.Sprintf("board_id = $%d", arg), p.id
	case predicateByStatus:
		return fmt.Sprintf("status = $%d", arg), p.status.Rank()
	default:
		// an unknown predicate must never widen a query
		return "FALSE", nil
	}
}

// TaskOrder is a sort key of a TaskSpec. Every key sorts ascending.
type TaskOrder int

const (
	// PositionAsc sorts by position within a column.
	PositionAsc TaskOrder = iota + 1
	// StatusDisplayAsc sorts by the status column order (ToDo, InProgress, Done).
	StatusDisplayAsc
)

func (o TaskOrder) compare(a, b *domain.Task) int {
	switch o {
	case PositionAsc:
		return cmp.Compare(a.Position(), b.Position())
	case StatusDisplayAsc:
		return cmp.Compare(a.Status().DisplayOrder(), b.Status().DisplayOrder())
	default:
		return 0
	}
}

func (o TaskOrder) sql() string {
	switch o {
	case PositionAsc:
		return "position ASC"
	case StatusDisplayAsc:
		var b strings.Builder
		b.WriteString("CASE status")
		for _, s := range domain.AllTaskStatuses() {
			fmt.Fprintf(&b, " WHEN %d THEN %d", s.Rank(), s.DisplayOrder())
		}
		b.WriteString(" END ASC")
		return b.String()
	default:
		return ""
	}
}

// TaskSpec is an immutable query over tasks: a conjunction of predicates and
// a list of sort keys. The same TaskSpec can be evaluated in memory (Matches,
// Apply) or rendered to SQL, and both give the same answer.
type TaskSpec struct {
	predicates []TaskPredicate
	orders     []TaskOrder
}

// NewTaskSpec returns a TaskSpec that matches every task in storage order.
func NewTaskSpec() TaskSpec {
	return TaskSpec{}
}

// Where returns a copy of s with the predicates added.
func (s TaskSpec) Where(preds ...TaskPredicate) TaskSpec {
	return TaskSpec{
		predicates: append(slices.Clone(s.predicates), preds...),
		orders:     slices.Clone(s.orders),
	}
}

// OrderBy returns a copy of s with the sort keys appended.
func (s TaskSpec) OrderBy(orders ...TaskOrder) TaskSpec {
	return TaskSpec{
		predicates: slices.Clone(s.predicates),
		orders:     append(slices.Clone(s.orders), orders...),
	}
}

// And combines two specs: both sets of predicates must hold, and other's sort
// keys follow s's.
func (s TaskSpec) And(other TaskSpec) TaskSpec {
	return s.Where(other.predicates...).OrderBy(other.orders...)
}

// Matches reports whether t satisfies every predicate.
func (s TaskSpec) Matches(t *domain.Task) bool {
	for _, p := range s.predicates {
		if !p.matches(t) {
			return false
		}
	}
	return true
}

// Apply filters tasks and sorts the survivors stably by its sort keys.
// The input slice is not modified.
func (s TaskSpec) Apply(tasks []*domain.Task) []*domain.Task {
	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if s.Matches(t) {
			out = append(out, t)
		}
	}
	if len(s.orders) > 0 {
		slices.SortStableFunc(out, s.compare)
	}
	return out
}

func (s TaskSpec) compare(a, b *domain.Task) int {
	for _, o := range s.orders {
		if c := o.compare(a, b); c != 0 {
			return c
		}
	}
	return 0
}

// SQL renders the TaskSpec as a WHERE condition and ORDER BY list using numbered
// placeholders starting at firstArg. Either string is empty when it has
// no predicates or no sort keys.
func (s TaskSpec) SQL(firstArg int) (where, orderBy string, args []any) {
	conds := make([]string, 0, len(s.predicates))
	for _, p := range s.predicates {
		cond, arg := p.sql(firstArg + len(args))
		if arg != nil {
			args = append(args, arg)
		}
		conds = append(conds, cond)
	}

	keys := make([]string, 0, len(s.orders))
	for _, o := range s.orders {
		if key := o.sql(); key != "" {
			keys = append(keys, key)
		}
	}

	return strings.Join(conds, " AND "), strings.Join(keys, ", "), args
}

// TaskByIDSpec selects a single task.
func TaskByIDSpec(id uuid.UUID) TaskSpec {
	return NewTaskSpec().Where(ByID(id))
}

// TasksByBoardSpec selects a board's tasks, optionally in one status only,
// ordered by position.
func TasksByBoardSpec(boardID uuid.UUID, status *domain.TaskStatus) TaskSpec {
	spec := NewTaskSpec().Where(ByBoard(boardID))
	if status != nil {
		spec = spec.Where(ByStatus(*status))
	}
	return spec.OrderBy(PositionAsc)
}

// SortForBoard orders tasks the way a board displays them: by status column,
// then by position. It sorts in place and is stable.
func SortForBoard(tasks []*domain.Task) {
	NewTaskSpec().OrderBy(StatusDisplayAsc, PositionAsc).sortInPlace(tasks)
}

func (s TaskSpec) sortInPlace(tasks []*domain.Task) {
	slices.SortStableFunc(tasks, s.compare)
}
