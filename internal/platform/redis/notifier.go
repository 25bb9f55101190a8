// Package redis publishes committed task notifications to Redis pub/sub so
// board clients can follow changes without polling.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/kanban-api/internal/domain"
	"github.com/phrazzld/kanban-api/internal/events"
	"github.com/phrazzld/kanban-api/internal/platform/logger"
	goredis "github.com/redis/go-redis/v9"
)

// Message is the JSON document published for each notification.
type Message struct {
	Event      string          `json:"event"`
	TaskID     uuid.UUID       `json:"task_id"`
	BoardID    uuid.UUID       `json:"board_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Notifier is an events.Handler that forwards notifications to the channel
// <prefix>:board:<boardID>.
type Notifier struct {
	client goredis.UniversalClient
	prefix string
	logger *slog.Logger
}

var _ events.Handler = (*Notifier)(nil)

// NewNotifier creates a Notifier. It panics if client is nil.
func NewNotifier(client goredis.UniversalClient, prefix string, logger *slog.Logger) *Notifier {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("component", "redis_notifier")),
	}
}

// Name implements events.Named.
func (n *Notifier) Name() string { return "redis" }

// BoardChannel returns the channel a board's notifications go to.
func (n *Notifier) BoardChannel(boardID uuid.UUID) string {
	return fmt.Sprintf("%s:board:%s", n.prefix, boardID)
}

// HandleEvent implements events.Handler. Events without a board are ignored.
func (n *Notifier) HandleEvent(ctx context.Context, event domain.Event) error {
	log := logger.FromContextFor(ctx, n.logger, "redis_notifier")

	var boardID uuid.UUID
	switch e := event.(type) {
	case domain.TaskStatusChanged:
		boardID = e.BoardID
	case domain.TaskDeleted:
		boardID = e.BoardID
	default:
		log.Debug("ignoring event without board", slog.String("event_name", event.EventName()))
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event.EventName(), err)
	}
	msg, err := json.Marshal(Message{
		Event:      event.EventName(),
		TaskID:     event.AggregateID(),
		BoardID:    boardID,
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", event.EventName(), err)
	}

	channel := n.BoardChannel(boardID)
	receivers, err := n.client.Publish(ctx, channel, msg).Result()
	if err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event.EventName(), channel, err)
	}

	log.Debug("notification published",
		slog.String("event_name", event.EventName()),
		slog.String("channel", channel),
		slog.Int64("receivers", receivers))
	return nil
}

// NewClient builds a go-redis client and checks the connection.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}
