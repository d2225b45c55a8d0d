package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/vogonweb/vogon/pkg/logger"
)

// StaleRequeuer re-enqueues representation refreshes for relation sets
// that stayed pending too long.
type StaleRequeuer interface {
	RequeueStale(ctx context.Context, age time.Duration, limit int) (int, error)
}

// StreamTrimmer caps the task streams.
type StreamTrimmer interface {
	Trim(ctx context.Context) error
}

// RepresentationRequeueTask picks up relation sets whose refresh task was
// lost or failed permanently.
type RepresentationRequeueTask struct {
	sets  StaleRequeuer
	age   time.Duration
	limit int
	log   *slog.Logger
}

// NewRepresentationRequeueTask creates a new requeue task
func NewRepresentationRequeueTask(sets StaleRequeuer, age time.Duration, limit int, log *slog.Logger) *RepresentationRequeueTask {
	if limit <= 0 {
		limit = 200
	}
	return &RepresentationRequeueTask{
		sets:  sets,
		age:   age,
		limit: limit,
		log:   log.With(logger.Scope("scheduler.representation")),
	}
}

// Run executes the requeue
func (t *RepresentationRequeueTask) Run(ctx context.Context) error {
	n, err := t.sets.RequeueStale(ctx, t.age, t.limit)
	if err != nil {
		return err
	}
	if n > 0 {
		t.log.Info("requeued pending relation sets",
			slog.Int("count", n),
			slog.Duration("older_than", t.age))
	}
	return nil
}

// StreamTrimTask trims the task and dead-letter streams.
type StreamTrimTask struct {
	streams StreamTrimmer
	log     *slog.Logger
}

// NewStreamTrimTask creates a new stream trim task
func NewStreamTrimTask(streams StreamTrimmer, log *slog.Logger) *StreamTrimTask {
	return &StreamTrimTask{
		streams: streams,
		log:     log.With(logger.Scope("scheduler.stream_trim")),
	}
}

// Run executes the trim
func (t *StreamTrimTask) Run(ctx context.Context) error {
	start := time.Now()
	if err := t.streams.Trim(ctx); err != nil {
		return err
	}
	t.log.Debug("task streams trimmed", slog.Duration("duration", time.Since(start)))
	return nil
}
