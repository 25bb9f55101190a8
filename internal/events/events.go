package events

import (
	"context"

	"github.com/phrazzld/kanban-api/internal/domain"
)

// Handler reacts to a single committed domain event.
type Handler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event domain.Event) error
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, event domain.Event) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// Publisher delivers a batch of committed events to their handlers.
// Implementations must preserve the order of the batch.
type Publisher interface {
	Publish(ctx context.Context, batch []domain.Event) error
}
