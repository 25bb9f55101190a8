package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
)

// Common errors returned by AsyncPublisher.Publish
var (
	ErrQueueClosed = errors.New("event queue is closed")
	ErrQueueFull   = errors.New("event queue is full")
)

// AsyncConfig holds configuration for the async publisher.
type AsyncConfig struct {
	// WorkerCount is the number of goroutines delivering batches.
	// If zero or negative, defaults to 1.
	WorkerCount int

	// QueueSize is the number of batches that may wait for a worker.
	// If zero or negative, defaults to 1.
	QueueSize int
}

// DefaultAsyncConfig returns an AsyncConfig with reasonable defaults.
func DefaultAsyncConfig() AsyncConfig {
	return AsyncConfig{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

type batchJob struct {
	ctx   context.Context
	batch []domain.Event
}

// AsyncPublisher queues committed batches and delivers them on a pool of
// workers through another Publisher, usually a Dispatcher. A batch is one
// job, so its events stay in order; there is no ordering between batches.
type AsyncPublisher struct {
	next        Publisher
	jobs        chan batchJob
	workerCount int

	// ctx is cancelled when Stop gives up waiting; in-flight deliveries see it
	// before their next handler call.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	started bool

	logger *slog.Logger
}

var _ Publisher = (*AsyncPublisher)(nil)

// NewAsyncPublisher creates a publisher. Call Start before publishing.
func NewAsyncPublisher(next Publisher, config AsyncConfig, logger *slog.Logger) *AsyncPublisher {
	if next == nil {
		panic("next publisher cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "async_event_publisher"))

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		workerCount = 1
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &AsyncPublisher{
		next:        next,
		jobs:        make(chan batchJob, queueSize),
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *AsyncPublisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	p.logger.Info("starting event workers", "worker_count", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Publish enqueues the batch. The caller's cancellation is detached so a
// finished request does not abort delivery of what it already committed.
func (p *AsyncPublisher) Publish(ctx context.Context, batch []domain.Event) error {
	if len(batch) == 0 {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrQueueClosed
	}

	job := batchJob{ctx: context.WithoutCancel(ctx), batch: batch}
	select {
	case p.jobs <- job:
		logger.FromContextFor(ctx, p.logger, "async_event_publisher").Debug("event batch enqueued",
			"batch_size", len(batch),
			"queue_len", len(p.jobs),
			"queue_cap", cap(p.jobs))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(p.jobs))
	}
}

// Stop closes the queue and waits for the workers to drain it. If ctx ends
// first, in-flight deliveries are cancelled before their next handler call
// and ctx.Err() is returned once the workers have exited.
func (p *AsyncPublisher) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	started := p.started
	p.mu.Unlock()

	if !started {
		p.cancel()
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("event workers stopped")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		p.logger.Warn("event workers stopped before the queue drained", "error", ctx.Err())
		return ctx.Err()
	}
}

func (p *AsyncPublisher) worker(id int) {
	defer p.wg.Done()
	log := p.logger.With("worker_id", id)
	log.Debug("event worker started")

	for job := range p.jobs {
		p.deliver(log, job)
	}

	log.Debug("event worker stopped")
}

func (p *AsyncPublisher) deliver(log *slog.Logger, job batchJob) {
	ctx, cancel := context.WithCancel(job.ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	if err := p.next.Publish(ctx, job.batch); err != nil {
		log.Error("event batch delivered with errors",
			"batch_size", len(job.batch),
			"error", err)
	}
}
