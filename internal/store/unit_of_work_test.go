package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/events"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
	"github.com/phrazzld/kanban-api/internal/platform/memory"
	"github.com/phrazzld/kanban-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]domain.Event
	err     error
}

func (p *recordingPublisher) Publish(ctx context.Context, batch []domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, batch)
	return p.err
}

func (p *recordingPublisher) Batches() [][]domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.batches
}

type fixture struct {
	db        *memory.Store
	publisher *recordingPublisher
	uow       *store.TrackingUnitOfWork
	logs      *logger.TestLogBuffer
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	l, buf := logger.GetTestLogger(t)
	db := memory.NewStore(l, opts...)
	pub := &recordingPublisher{}
	return &fixture{db: db, publisher: pub, uow: store.NewUnitOfWork(db, pub, l), logs: buf}
}

func (f *fixture) seed(t *testing.T, title string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(title, uuid.New(), "")
	require.NoError(t, err)
	require.NoError(t, f.db.Create(context.Background(), task))
	return task
}

func TestUnitOfWorkPublishesAfterCommit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	seeded := f.seed(t, "Review PR")
	var loaded *domain.Task

	err := f.uow.Do(context.Background(), func(ctx context.Context, tasks store.TaskStore) error {
		var err error
		loaded, err = tasks.GetByID(ctx, seeded.ID())
		if err != nil {
			return err
		}
		if err := loaded.MoveTo(domain.TaskStatusInProgress, 0); err != nil {
			return err
		}
		assert.Empty(t, f.publisher.Batches(), "nothing may be published before commit")
		return tasks.Update(ctx, loaded)
	})
	require.NoError(t, err)

	batches := f.publisher.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	changed := batches[0][0].(domain.TaskStatusChanged)
	assert.Equal(t, domain.TaskStatusToDo, changed.From)
	assert.Equal(t, domain.TaskStatusInProgress, changed.To)
	assert.Empty(t, loaded.PendingEvents(), "buffer is cleared after a successful commit")

	persisted, err := f.db.GetByID(context.Background(), seeded.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, persisted.Status())
}

func TestUnitOfWorkFnErrorPublishesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	seeded := f.seed(t, "Review PR")
	boom := errors.New("validation downstream")
	var loaded *domain.Task

	err := f.uow.Do(context.Background(), func(ctx context.Context, tasks store.TaskStore) error {
		loaded, _ = tasks.GetByID(ctx, seeded.ID())
		require.NoError(t, loaded.MoveTo(domain.TaskStatusInProgress, 0))
		require.NoError(t, tasks.Update(ctx, loaded))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, f.publisher.Batches())
	assert.Len(t, loaded.PendingEvents(), 1, "buffer survives a rollback")

	persisted, err := f.db.GetByID(context.Background(), seeded.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusToDo, persisted.Status())
}

func TestUnitOfWorkCommitFailurePublishesNothing(t *testing.T) {
	t.Parallel()

	var failCommit bool
	f := newFixture(t, memory.WithBeforeCommit(func(context.Context) error {
		if failCommit {
			return errors.New("connection reset")
		}
		return nil
	}))
	seeded := f.seed(t, "Review PR")
	failCommit = true

	var loaded *domain.Task
	err := f.uow.Do(context.Background(), func(ctx context.Context, tasks store.TaskStore) error {
		var err error
		loaded, err = tasks.GetByID(ctx, seeded.ID())
		require.NoError(t, err)
		require.NoError(t, loaded.MoveTo(domain.TaskStatusInProgress, 1))
		return tasks.Update(ctx, loaded)
	})
	assert.ErrorIs(t, err, store.ErrTransactionFailed)
	assert.Empty(t, f.publisher.Batches())
	assert.Len(t, loaded.PendingEvents(), 1)
}

func TestUnitOfWorkPanicPublishesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	seeded := f.seed(t, "Review PR")

	assert.Panics(t, func() {
		_ = f.uow.Do(context.Background(), func(ctx context.Context, tasks store.TaskStore) error {
			loaded, _ := tasks.GetByID(ctx, seeded.ID())
			_ = loaded.MoveTo(domain.TaskStatusInProgress, 0)
			_ = tasks.Update(ctx, loaded)
			panic("bug in handler")
		})
	})
	assert.Empty(t, f.publisher.Batches())
}

func TestUnitOfWorkPublisherErrorDoesNotFailCommand(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.publisher.err = errors.New("queue full")
	seeded := f.seed(t, "Review PR")

	err := f.uow.Do(context.Background(), func(ctx context.Context, tasks store.TaskStore) error {
		loaded, err := tasks.GetByID(ctx, seeded.ID())
		require.NoError(t, err)
		require.NoError(t, loaded.MoveTo(domain.TaskStatusInProgress, 0))
		return tasks.Update(ctx, loaded)
	})
	require.NoError(t, err)
	assert.Len(t, f.publisher.Batches(), 1)
	logger.AssertLogContains(t, f.logs, "failed to publish committed events")
}

func TestUnitOfWorkBatchFollowsTrackingOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	first := f.seed(t, "first")
	second := f.seed(t, "second")

	err := f.uow.Do(context.Background(), func(ctx context.Context, tasks store.TaskStore) error {
		b, err := tasks.GetByID(ctx, second.ID())
		require.NoError(t, err)
		a, err := tasks.GetByID(ctx, first.ID())
		require.NoError(t, err)

		// a mutates first but b was tracked first
		require.NoError(t, a.MoveTo(domain.TaskStatusInProgress, 0))
		require.NoError(t, b.MoveTo(domain.TaskStatusInProgress, 0))
		require.NoError(t, b.MoveTo(domain.TaskStatusDone, 0))
		require.NoError(t, tasks.Update(ctx, a))
		require.NoError(t, tasks.Update(ctx, b))
		require.NoError(t, tasks.Update(ctx, b))
		return nil
	})
	require.NoError(t, err)

	batches := f.publisher.Batches()
	require.Len(t, batches, 1)
	batch := batches[0]
	require.Len(t, batch, 3)
	assert.Equal(t, second.ID(), batch[0].AggregateID())
	assert.Equal(t, domain.TaskStatusInProgress, batch[0].(domain.TaskStatusChanged).To)
	assert.Equal(t, second.ID(), batch[1].AggregateID())
	assert.Equal(t, domain.TaskStatusDone, batch[1].(domain.TaskStatusChanged).To)
	assert.Equal(t, first.ID(), batch[2].AggregateID())
}

func TestUnitOfWorkTracksCreatedAndDeleted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	doomed := f.seed(t, "doomed")

	err := f.uow.Do(context.Background(), func(ctx context.Context, tasks store.TaskStore) error {
		found, err := tasks.Find(ctx, store.TaskByIDSpec(doomed.ID()))
		require.NoError(t, err)
		require.Len(t, found, 1)
		found[0].MarkDeleted()
		return tasks.Delete(ctx, found[0])
	})
	require.NoError(t, err)

	batches := f.publisher.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, domain.EventTaskDeleted, batches[0][0].EventName())
	assert.Equal(t, 0, f.db.Len())
}

func TestUnitOfWorkWithoutEventsSkipsPublish(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.uow.Do(context.Background(), func(ctx context.Context, tasks store.TaskStore) error {
		task, err := domain.NewTask("quiet", uuid.New(), "")
		require.NoError(t, err)
		return tasks.Create(ctx, task)
	})
	require.NoError(t, err)
	assert.Empty(t, f.publisher.Batches())
	assert.Equal(t, 1, f.db.Len())
}

func TestUnitOfWorkHandlersSeeCommittedState(t *testing.T) {
	t.Parallel()

	l, _ := logger.GetTestLogger(t)
	db := memory.NewStore(l)
	dispatcher := events.NewDispatcher(l)
	uow := store.NewUnitOfWork(db, dispatcher, l)

	seeded, err := domain.NewTask("observe me", uuid.New(), "")
	require.NoError(t, err)
	require.NoError(t, db.Create(context.Background(), seeded))

	var observed domain.TaskStatus
	dispatcher.RegisterFunc(domain.EventTaskStatusChanged, "observer", func(ctx context.Context, event domain.Event) error {
		task, err := db.GetByID(ctx, event.AggregateID())
		if err != nil {
			return err
		}
		observed = task.Status()
		return nil
	})

	err = uow.Do(context.Background(), func(ctx context.Context, tasks store.TaskStore) error {
		task, err := tasks.GetByID(ctx, seeded.ID())
		require.NoError(t, err)
		require.NoError(t, task.MoveTo(domain.TaskStatusInProgress, 0))
		return tasks.Update(ctx, task)
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, observed)
}

func TestUnitOfWorkSpan(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	l, _ := logger.GetTestLogger(t)
	uow := store.NewUnitOfWork(memory.NewStore(l), &recordingPublisher{}, l, store.WithTracerProvider(tp))

	require.NoError(t, uow.Do(context.Background(), func(context.Context, store.TaskStore) error { return nil }))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "store.unit_of_work", spans[0].Name)
}

func TestNewUnitOfWorkPanicsOnNilDependencies(t *testing.T) {
	t.Parallel()

	l, _ := logger.GetTestLogger(t)
	assert.Panics(t, func() { store.NewUnitOfWork(nil, &recordingPublisher{}, l) })
	assert.Panics(t, func() { store.NewUnitOfWork(memory.NewStore(l), nil, l) })
}
