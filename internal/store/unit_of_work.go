package store

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/events"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/phrazzld/kanban-api/internal/store"

// UnitOfWorkOption configures a TrackingUnitOfWork.
type UnitOfWorkOption func(*TrackingUnitOfWork)

// WithTracerProvider sets the provider used for unit-of-work spans.
func WithTracerProvider(tp trace.TracerProvider) UnitOfWorkOption {
	return func(u *TrackingUnitOfWork) {
		u.tracer = tp.Tracer(tracerName)
	}
}

// TrackingUnitOfWork is the UnitOfWork used by the application. It records
// every aggregate that passes through the store during Do, gathers their
// pending events right before the transaction commits, and hands that batch
// to the publisher once the commit has succeeded.
type TrackingUnitOfWork struct {
	transactor Transactor
	publisher  events.Publisher
	logger     *slog.Logger
	tracer     trace.Tracer
}

var _ UnitOfWork = (*TrackingUnitOfWork)(nil)

// NewUnitOfWork creates a TrackingUnitOfWork.
func NewUnitOfWork(
	transactor Transactor,
	publisher events.Publisher,
	logger *slog.Logger,
	opts ...UnitOfWorkOption,
) *TrackingUnitOfWork {
	if transactor == nil {
		panic("transactor cannot be nil")
	}
	if publisher == nil {
		panic("publisher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	u := &TrackingUnitOfWork{
		transactor: transactor,
		publisher:  publisher,
		logger:     logger.With(slog.String("component", "unit_of_work")),
		tracer:     otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Do runs fn in a transaction. If fn fails, panics, or the commit fails,
// nothing is published and the aggregates keep their pending events.
// Otherwise their buffers are cleared and the batch is published; a publish
// failure is logged and does not change the returned error.
func (u *TrackingUnitOfWork) Do(
	ctx context.Context,
	fn func(ctx context.Context, tasks TaskStore) error,
) error {
	ctx, span := u.tracer.Start(ctx, "store.unit_of_work")
	defer span.End()

	log := logger.FromContextFor(ctx, u.logger, "unit_of_work")
	tracked := &tracker{seen: make(map[domain.Aggregate]struct{})}
	var batch []domain.Event

	err := u.transactor.InTx(ctx, func(ctx context.Context, tasks TaskStore) error {
		if err := fn(ctx, &trackingStore{inner: tasks, tracker: tracked}); err != nil {
			return err
		}
		batch = tracked.collect()
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unit of work failed")
		log.Debug("unit of work rolled back, no events published",
			slog.String("error", err.Error()),
			slog.Int("tracked_aggregates", len(tracked.order)))
		return err
	}

	tracked.clear()
	span.SetAttributes(attribute.Int("events.count", len(batch)))

	if len(batch) == 0 {
		return nil
	}

	if err := u.publisher.Publish(ctx, batch); err != nil {
		log.Error("failed to publish committed events",
			slog.String("error", err.Error()),
			slog.Int("batch_size", len(batch)))
	}
	return nil
}

type tracker struct {
	seen  map[domain.Aggregate]struct{}
	order []domain.Aggregate
}

func (t *tracker) track(task *domain.Task) {
	if task == nil {
		return
	}
	var a domain.Aggregate = task
	if _, ok := t.seen[a]; ok {
		return
	}
	t.seen[a] = struct{}{}
	t.order = append(t.order, a)
}

func (t *tracker) collect() []domain.Event {
	var batch []domain.Event
	for _, a := range t.order {
		batch = append(batch, a.PendingEvents()...)
	}
	return batch
}

func (t *tracker) clear() {
	for _, a := range t.order {
		a.ClearEvents()
	}
}

// trackingStore records every task it hands out or receives.
type trackingStore struct {
	inner   TaskStore
	tracker *tracker
}

func (s *trackingStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.tracker.track(task)
	return task, nil
}

func (s *trackingStore) Find(ctx context.Context, spec TaskSpec) ([]*domain.Task, error) {
	tasks, err := s.inner.Find(ctx, spec)
	if err != nil {
		return nil, err
	}
	for _, task := range tasks {
		s.tracker.track(task)
	}
	return tasks, nil
}

func (s *trackingStore) Create(ctx context.Context, task *domain.Task) error {
	s.tracker.track(task)
	return s.inner.Create(ctx, task)
}

func (s *trackingStore) Update(ctx context.Context, task *domain.Task) error {
	s.tracker.track(task)
	return s.inner.Update(ctx, task)
}

func (s *trackingStore) Delete(ctx context.Context, task *domain.Task) error {
	s.tracker.track(task)
	return s.inner.Delete(ctx, task)
}
