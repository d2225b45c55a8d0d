// Package tasks is the background task queue shared by the API and the worker.
//
// Tasks are JSON messages on a Redis stream read through a consumer group:
//   - the API process publishes with Client.Enqueue
//   - the worker reads batches, dispatches by name and acks on success
//   - failed tasks are re-published with an incremented attempt counter
//   - after MaxAttempts the task moves to the dead-letter stream
//
// Handlers are discovered through the fx value group "tasks"; every domain module
// that owns a task provides it with AsHandler.
package tasks

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/fx"
)

// Task is the message stored on the stream.
type Task struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	CreatedAt time.Time       `json:"created_at"`
	LastError string          `json:"last_error,omitempty"`
}

// Handler executes one named task.
type Handler interface {
	Name() string
	Handle(ctx context.Context, payload json.RawMessage) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	TaskName string
	Fn       func(ctx context.Context, payload json.RawMessage) error
}

func (h HandlerFunc) Name() string { return h.TaskName }

func (h HandlerFunc) Handle(ctx context.Context, payload json.RawMessage) error {
	return h.Fn(ctx, payload)
}

// AsHandler annotates a constructor so its result joins the "tasks" group.
func AsHandler(constructor any) any {
	return fx.Annotate(
		constructor,
		fx.As(new(Handler)),
		fx.ResultTags(`group:"tasks"`),
	)
}

// truncateError bounds error text stored on re-published tasks.
func truncateError(msg string) string {
	if len(msg) > 500 {
		return msg[:500]
	}
	return msg
}
