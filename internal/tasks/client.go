package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/pkg/logger"
)

// Client publishes tasks and reports queue statistics.
type Client struct {
	broker Broker
	cfg    config.TasksConfig
	log    *slog.Logger
	now    func() time.Time
}

// NewClient creates a task client.
func NewClient(broker Broker, cfg *config.Config, log *slog.Logger) *Client {
	return &Client{
		broker: broker,
		cfg:    cfg.Tasks,
		log:    log.With(logger.Scope("tasks.client")),
		now:    time.Now,
	}
}

// Enqueue publishes a named task with a JSON-encoded payload and returns the task id.
func (c *Client) Enqueue(ctx context.Context, name string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal %s payload: %w", name, err)
	}

	t := &Task{
		ID:        uuid.New().String(),
		Name:      name,
		Payload:   data,
		CreatedAt: c.now().UTC(),
	}
	if _, err := c.broker.Publish(ctx, c.cfg.Stream, t); err != nil {
		return "", err
	}

	c.log.Info("task enqueued", slog.String("task", name), slog.String("task_id", t.ID))
	return t.ID, nil
}

// Stats describes the queue backlog.
type Stats struct {
	Stream      string `json:"stream"`
	Length      int64  `json:"length"`
	Pending     int64  `json:"pending"`
	DeadLetters int64  `json:"dead_letters"`
}

// Stats returns stream length, unacknowledged count and dead-letter count.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	length, err := c.broker.Len(ctx, c.cfg.Stream)
	if err != nil {
		return nil, fmt.Errorf("stream length: %w", err)
	}
	pending, err := c.broker.Pending(ctx, c.cfg.Stream, c.cfg.Group)
	if err != nil {
		return nil, fmt.Errorf("pending count: %w", err)
	}
	dead, err := c.broker.Len(ctx, c.cfg.DeadLetterStream)
	if err != nil {
		return nil, fmt.Errorf("dead letter length: %w", err)
	}
	return &Stats{Stream: c.cfg.Stream, Length: length, Pending: pending, DeadLetters: dead}, nil
}

// Trim caps the task and dead-letter streams at the configured length.
func (c *Client) Trim(ctx context.Context) error {
	for _, s := range []string{c.cfg.Stream, c.cfg.DeadLetterStream} {
		if err := c.broker.Trim(ctx, s, c.cfg.MaxLen); err != nil {
			return fmt.Errorf("trim %s: %w", s, err)
		}
	}
	return nil
}

// Ping checks that the broker is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.broker.Ping(ctx)
}
