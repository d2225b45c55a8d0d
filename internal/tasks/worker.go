package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vogonweb/vogon/internal/config"
	"github.com/vogonweb/vogon/pkg/logger"
)

var (
	tasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vogon",
		Subsystem: "tasks",
		Name:      "processed_total",
		Help:      "Tasks processed by the worker, by task name and outcome.",
	}, []string{"task", "outcome"})

	taskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vogon",
		Subsystem: "tasks",
		Name:      "duration_seconds",
		Help:      "Task handler execution time.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"task"})
)

const errorBackoff = time.Second

// BatchSizer adjusts how many entries the worker reads per batch.
type BatchSizer interface {
	BatchSize(static int) int
}

// Worker consumes the task stream and dispatches to registered handlers.
type Worker struct {
	broker   Broker
	registry *Registry
	cfg      config.TasksConfig
	consumer string
	sizer    BatchSizer
	log      *slog.Logger

	cancel    context.CancelFunc
	stopCh    chan struct{}
	stoppedCh chan struct{}
	running   bool
	mu        sync.Mutex

	processedCount int64
	successCount   int64
	failureCount   int64
	deadCount      int64
	metricsMu      sync.RWMutex
}

// NewWorker creates a worker. The consumer name defaults to host-pid.
func NewWorker(broker Broker, registry *Registry, cfg *config.Config, log *slog.Logger) *Worker {
	tc := cfg.Tasks
	if tc.BatchSize <= 0 {
		tc.BatchSize = 10
	}
	if tc.MaxAttempts <= 0 {
		tc.MaxAttempts = 1
	}
	consumer := tc.Consumer
	if consumer == "" {
		host, _ := os.Hostname()
		consumer = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	return &Worker{
		broker:    broker,
		registry:  registry,
		cfg:       tc,
		consumer:  consumer,
		log:       log.With(logger.Scope("tasks.worker"), slog.String("consumer", consumer)),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// WithSizer lets s shrink batches under host pressure.
func (w *Worker) WithSizer(s BatchSizer) *Worker {
	w.sizer = s
	return w
}

func (w *Worker) batchSize() int {
	if w.sizer == nil {
		return w.cfg.BatchSize
	}
	if n := w.sizer.BatchSize(w.cfg.BatchSize); n > 0 {
		return n
	}
	return 1
}

// Start creates the consumer group and begins the read loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := w.broker.EnsureGroup(ctx, w.cfg.Stream, w.cfg.Group); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.running = true
	w.stopCh = make(chan struct{})
	w.stoppedCh = make(chan struct{})

	w.log.Info("worker starting",
		slog.String("stream", w.cfg.Stream),
		slog.String("group", w.cfg.Group),
		slog.Int("batch_size", w.cfg.BatchSize),
		slog.Any("tasks", w.registry.Names()),
	)

	go w.run(runCtx)
	return nil
}

// Stop signals the loop and waits for the current batch to finish.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.stopCh)
	w.cancel()
	w.mu.Unlock()

	select {
	case <-w.stoppedCh:
		w.log.Info("worker stopped gracefully")
	case <-ctx.Done():
		w.log.Warn("worker stop timeout, forcing shutdown")
	}
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.stoppedCh)

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		if _, err := w.ProcessBatch(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.log.Warn("process batch failed", logger.Error(err))
			select {
			case <-w.stopCh:
				return
			case <-time.After(errorBackoff):
			}
		}
	}
}

// ProcessBatch claims stale entries, reads new ones and handles them all.
// It returns the number of tasks handled.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	size := w.batchSize()
	count := int64(size)

	claimed, err := w.broker.Claim(ctx, w.cfg.Stream, w.cfg.Group, w.consumer, w.cfg.ClaimIdle, count)
	if err != nil {
		return 0, err
	}
	msgs := claimed
	if len(msgs) < size {
		fresh, err := w.broker.Read(ctx, w.cfg.Stream, w.cfg.Group, w.consumer, count-int64(len(msgs)), w.cfg.Block)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, fresh...)
	}

	for _, m := range msgs {
		if err := w.handle(ctx, m); err != nil {
			return 0, err
		}
	}
	return len(msgs), nil
}

// handle runs one task. The returned error is a broker failure; handler
// failures are recorded and the task is retried or dead-lettered.
func (w *Worker) handle(ctx context.Context, m Message) error {
	t := m.Task
	if m.DecodeErr != nil {
		w.log.Error("undecodable task entry, dead-lettering",
			slog.String("entry_id", m.EntryID),
			logger.Error(m.DecodeErr),
		)
		w.IncrementFailure()
		tasksProcessed.WithLabelValues("", "undecodable").Inc()
		return w.deadLetter(ctx, m.EntryID, &t)
	}

	log := w.log.With(slog.String("task", t.Name), slog.String("task_id", t.ID), slog.Int("attempt", t.Attempts+1))

	h, ok := w.registry.Lookup(t.Name)
	if !ok {
		log.Error("no handler registered for task")
		w.IncrementFailure()
		tasksProcessed.WithLabelValues(t.Name, "unknown").Inc()
		t.LastError = "no handler registered"
		return w.deadLetter(ctx, m.EntryID, &t)
	}

	start := time.Now()
	herr := w.invoke(ctx, h, &t)
	taskDuration.WithLabelValues(t.Name).Observe(time.Since(start).Seconds())

	if herr == nil {
		w.IncrementSuccess()
		tasksProcessed.WithLabelValues(t.Name, "success").Inc()
		log.Debug("task completed", slog.Duration("duration", time.Since(start)))
		return w.broker.Ack(ctx, w.cfg.Stream, w.cfg.Group, m.EntryID)
	}

	w.IncrementFailure()
	t.Attempts++
	t.LastError = truncateError(herr.Error())

	if t.Attempts >= w.cfg.MaxAttempts {
		log.Error("task failed permanently", logger.Error(herr))
		tasksProcessed.WithLabelValues(t.Name, "dead").Inc()
		return w.deadLetter(ctx, m.EntryID, &t)
	}

	log.Warn("task failed, requeueing", logger.Error(herr))
	tasksProcessed.WithLabelValues(t.Name, "retry").Inc()
	if _, err := w.broker.Publish(ctx, w.cfg.Stream, &t); err != nil {
		return err
	}
	return w.broker.Ack(ctx, w.cfg.Stream, w.cfg.Group, m.EntryID)
}

func (w *Worker) invoke(ctx context.Context, h Handler, t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return h.Handle(ctx, t.Payload)
}

func (w *Worker) deadLetter(ctx context.Context, entryID string, t *Task) error {
	if _, err := w.broker.Publish(ctx, w.cfg.DeadLetterStream, t); err != nil {
		return err
	}
	w.metricsMu.Lock()
	w.deadCount++
	w.metricsMu.Unlock()
	return w.broker.Ack(ctx, w.cfg.Stream, w.cfg.Group, entryID)
}

// Metrics returns current worker metrics
func (w *Worker) Metrics() WorkerMetrics {
	w.metricsMu.RLock()
	defer w.metricsMu.RUnlock()

	return WorkerMetrics{
		Processed:    w.processedCount,
		Succeeded:    w.successCount,
		Failed:       w.failureCount,
		DeadLettered: w.deadCount,
	}
}

// IncrementSuccess increments both processed and success counters
func (w *Worker) IncrementSuccess() {
	w.metricsMu.Lock()
	w.processedCount++
	w.successCount++
	w.metricsMu.Unlock()
}

// IncrementFailure increments both processed and failure counters
func (w *Worker) IncrementFailure() {
	w.metricsMu.Lock()
	w.processedCount++
	w.failureCount++
	w.metricsMu.Unlock()
}

// IsRunning returns whether the worker is currently running
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// WorkerMetrics contains worker metrics
type WorkerMetrics struct {
	Processed    int64 `json:"processed"`
	Succeeded    int64 `json:"succeeded"`
	Failed       int64 `json:"failed"`
	DeadLettered int64 `json:"dead_lettered"`
}
