package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/phrazzld/kanban-api/internal/events"

// ErrDispatchCancelled is returned when the context ends before every
// handler has been invoked.
var ErrDispatchCancelled = errors.New("event dispatch cancelled")

// HandlerError records the failure of one handler for one event.
type HandlerError struct {
	EventName   string
	AggregateID uuid.UUID
	Handler     string
	Err         error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed for %s (aggregate %s): %v",
		e.Handler, e.EventName, e.AggregateID, e.Err)
}

// Unwrap returns the handler's error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// Named is implemented by handlers that want a stable name in logs and spans.
type Named interface {
	Name() string
}

type registration struct {
	name    string
	handler Handler
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTracerProvider sets the provider used for handler spans. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(d *Dispatcher) {
		d.tracer = tp.Tracer(tracerName)
	}
}

// Dispatcher is the synchronous Publisher. Handlers are registered per event
// name and invoked in registration order, one attempt each. A failing or
// panicking handler does not stop the others.
type Dispatcher struct {
	handlers map[string][]registration
	mu       sync.RWMutex
	logger   *slog.Logger
	tracer   trace.Tracer
}

var _ Publisher = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher with no handlers.
func NewDispatcher(logger *slog.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		handlers: make(map[string][]registration),
		logger:   logger.With(slog.String("component", "event_dispatcher")),
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Register adds handler for events named eventName.
func (d *Dispatcher) Register(eventName string, handler Handler) {
	if handler == nil {
		panic("handler cannot be nil")
	}
	name := fmt.Sprintf("%T", handler)
	if n, ok := handler.(Named); ok {
		name = n.Name()
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], registration{name: name, handler: handler})
	d.logger.Debug("registered event handler",
		slog.String("event_name", eventName),
		slog.String("handler", name),
		slog.Int("handler_count", len(d.handlers[eventName])))
}

// RegisterFunc registers fn under the given handler name.
func (d *Dispatcher) RegisterFunc(eventName, handlerName string, fn HandlerFunc) {
	d.Register(eventName, namedFunc{name: handlerName, fn: fn})
}

// HandlerCount returns the number of handlers registered for eventName.
func (d *Dispatcher) HandlerCount(eventName string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventName])
}

// Publish delivers the batch in order. Every handler failure is logged and
// joined into the returned error. Delivery stops when ctx is done; the
// undelivered remainder is reported through ErrDispatchCancelled.
func (d *Dispatcher) Publish(ctx context.Context, batch []domain.Event) error {
	log := logger.FromContextFor(ctx, d.logger, "event_dispatcher")

	var errs []error
	for i, event := range batch {
		handlers := d.handlersFor(event.EventName())
		if len(handlers) == 0 {
			log.Debug("no handlers registered for event",
				slog.String("event_name", event.EventName()),
				slog.String("aggregate_id", event.AggregateID().String()))
			continue
		}

		for _, reg := range handlers {
			if err := ctx.Err(); err != nil {
				skipped := len(batch) - i
				log.Warn("event dispatch cancelled",
					slog.String("error", err.Error()),
					slog.Int("skipped_events", skipped),
					slog.Int("batch_size", len(batch)))
				errs = append(errs, fmt.Errorf("%w: %d of %d events not fully delivered: %w",
					ErrDispatchCancelled, skipped, len(batch), err))
				return errors.Join(errs...)
			}

			if err := d.invoke(ctx, reg, event); err != nil {
				log.Error("handler failed to process event",
					slog.String("error", err.Error()),
					slog.String("handler", reg.name),
					slog.String("event_name", event.EventName()),
					slog.String("aggregate_id", event.AggregateID().String()))
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

func (d *Dispatcher) handlersFor(eventName string) []registration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	regs := d.handlers[eventName]
	out := make([]registration, len(regs))
	copy(out, regs)
	return out
}

func (d *Dispatcher) invoke(ctx context.Context, reg registration, event domain.Event) (err error) {
	ctx, span := d.tracer.Start(ctx, "events.handle", trace.WithAttributes(
		attribute.String("event.name", event.EventName()),
		attribute.String("event.aggregate_id", event.AggregateID().String()),
		attribute.String("event.handler", reg.name),
	))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = &HandlerError{
				EventName:   event.EventName(),
				AggregateID: event.AggregateID(),
				Handler:     reg.name,
				Err:         err,
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return reg.handler.HandleEvent(ctx, event)
}

type namedFunc struct {
	name string
	fn   HandlerFunc
}

func (n namedFunc) Name() string { return n.name }

func (n namedFunc) HandleEvent(ctx context.Context, event domain.Event) error {
	return n.fn(ctx, event)
}
