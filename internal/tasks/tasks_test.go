package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogonweb/vogon/internal/config"
)

// memBroker is an in-memory Broker. Read delivers every unread entry and
// Ack removes it from the pending set.
type memBroker struct {
	mu      sync.Mutex
	seq     int
	streams map[string][]Message
	cursor  map[string]int
	pending map[string]map[string]Message
	claimed []Message
	failPub error
}

func newMemBroker() *memBroker {
	return &memBroker{
		streams: map[string][]Message{},
		cursor:  map[string]int{},
		pending: map[string]map[string]Message{},
	}
}

func (b *memBroker) Publish(_ context.Context, stream string, t *Task) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failPub != nil {
		return "", b.failPub
	}
	b.seq++
	id := fmt.Sprintf("%d-0", b.seq)
	b.streams[stream] = append(b.streams[stream], Message{EntryID: id, Task: *t})
	return id, nil
}

func (b *memBroker) EnsureGroup(context.Context, string, string) error { return nil }

func (b *memBroker) Read(_ context.Context, stream, _, _ string, count int64, _ time.Duration) ([]Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.streams[stream][b.cursor[stream]:]
	if int64(len(entries)) > count {
		entries = entries[:count]
	}
	b.cursor[stream] += len(entries)
	if b.pending[stream] == nil {
		b.pending[stream] = map[string]Message{}
	}
	for _, m := range entries {
		b.pending[stream][m.EntryID] = m
	}
	return append([]Message(nil), entries...), nil
}

func (b *memBroker) Claim(context.Context, string, string, string, time.Duration, int64) ([]Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.claimed
	b.claimed = nil
	return out, nil
}

func (b *memBroker) Ack(_ context.Context, stream, _ string, ids ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		delete(b.pending[stream], id)
	}
	return nil
}

func (b *memBroker) Len(_ context.Context, stream string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.streams[stream])), nil
}

func (b *memBroker) Pending(_ context.Context, stream, _ string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.pending[stream])), nil
}

func (b *memBroker) Trim(_ context.Context, stream string, maxLen int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s := b.streams[stream]; int64(len(s)) > maxLen {
		b.streams[stream] = s[int64(len(s))-maxLen:]
	}
	return nil
}

func (b *memBroker) Ping(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{Tasks: config.TasksConfig{
		RedisURL:         "redis://localhost:6379/2",
		Stream:           "vogon:tasks",
		DeadLetterStream: "vogon:tasks:dlq",
		Group:            "vogon-workers",
		Consumer:         "test",
		MaxAttempts:      3,
		BatchSize:        10,
		MaxLen:           2,
	}}
}

func newTestWorker(t *testing.T, b Broker, handlers ...Handler) *Worker {
	t.Helper()
	reg, err := NewRegistry(RegistryParams{Handlers: handlers})
	require.NoError(t, err)
	return NewWorker(b, reg, testConfig(), slog.Default())
}

func TestRegistry(t *testing.T) {
	a := HandlerFunc{TaskName: "giles.import_upload", Fn: func(context.Context, json.RawMessage) error { return nil }}
	b := HandlerFunc{TaskName: "relationsets.refresh_representation", Fn: func(context.Context, json.RawMessage) error { return nil }}

	reg, err := NewRegistry(RegistryParams{Handlers: []Handler{b, a}})
	require.NoError(t, err)
	assert.Equal(t, []string{"giles.import_upload", "relationsets.refresh_representation"}, reg.Names())

	h, ok := reg.Lookup("giles.import_upload")
	require.True(t, ok)
	assert.Equal(t, "giles.import_upload", h.Name())

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_Duplicate(t *testing.T) {
	h := HandlerFunc{TaskName: "dup", Fn: func(context.Context, json.RawMessage) error { return nil }}
	_, err := NewRegistry(RegistryParams{Handlers: []Handler{h, h}})
	assert.ErrorContains(t, err, "registered twice")

	_, err = NewRegistry(RegistryParams{Handlers: []Handler{HandlerFunc{}}})
	assert.ErrorContains(t, err, "no name")
}

func TestClient_Enqueue(t *testing.T) {
	b := newMemBroker()
	c := NewClient(b, testConfig(), slog.Default())

	id, err := c.Enqueue(context.Background(), "giles.import_upload", map[string]string{"upload_id": "u1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := b.streams["vogon:tasks"]
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].Task.ID)
	assert.Equal(t, "giles.import_upload", msgs[0].Task.Name)
	assert.JSONEq(t, `{"upload_id":"u1"}`, string(msgs[0].Task.Payload))
	assert.Zero(t, msgs[0].Task.Attempts)
}

func TestClient_EnqueuePublishError(t *testing.T) {
	b := newMemBroker()
	b.failPub = errors.New("connection refused")
	c := NewClient(b, testConfig(), slog.Default())

	_, err := c.Enqueue(context.Background(), "x", nil)
	assert.ErrorContains(t, err, "connection refused")
}

func TestClient_StatsAndTrim(t *testing.T) {
	b := newMemBroker()
	c := NewClient(b, testConfig(), slog.Default())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := c.Enqueue(ctx, "x", i)
		require.NoError(t, err)
	}
	_, err := b.Read(ctx, "vogon:tasks", "", "", 1, 0)
	require.NoError(t, err)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Length)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(0), stats.DeadLetters)

	require.NoError(t, c.Trim(ctx))
	stats, err = c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Length)
}

func TestWorker_DispatchesByName(t *testing.T) {
	b := newMemBroker()
	var got []string
	h := HandlerFunc{TaskName: "relationsets.refresh_representation", Fn: func(_ context.Context, p json.RawMessage) error {
		var body struct{ ID string }
		require.NoError(t, json.Unmarshal(p, &body))
		got = append(got, body.ID)
		return nil
	}}
	w := newTestWorker(t, b, h)
	c := NewClient(b, testConfig(), slog.Default())
	ctx := context.Background()

	_, err := c.Enqueue(ctx, "relationsets.refresh_representation", map[string]string{"ID": "rs1"})
	require.NoError(t, err)
	_, err = c.Enqueue(ctx, "relationsets.refresh_representation", map[string]string{"ID": "rs2"})
	require.NoError(t, err)

	n, err := w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"rs1", "rs2"}, got)

	pending, _ := b.Pending(ctx, "vogon:tasks", "")
	assert.Zero(t, pending)
	assert.Equal(t, WorkerMetrics{Processed: 2, Succeeded: 2}, w.Metrics())
}

func TestWorker_RetriesThenDeadLetters(t *testing.T) {
	b := newMemBroker()
	calls := 0
	h := HandlerFunc{TaskName: "giles.import_upload", Fn: func(context.Context, json.RawMessage) error {
		calls++
		return errors.New("giles unavailable")
	}}
	w := newTestWorker(t, b, h)
	ctx := context.Background()

	_, err := NewClient(b, testConfig(), slog.Default()).Enqueue(ctx, "giles.import_upload", nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		n, err := w.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	}
	assert.Equal(t, 3, calls)

	dlq := b.streams["vogon:tasks:dlq"]
	require.Len(t, dlq, 1)
	assert.Equal(t, 3, dlq[0].Task.Attempts)
	assert.Equal(t, "giles unavailable", dlq[0].Task.LastError)

	n, err := w.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	m := w.Metrics()
	assert.Equal(t, int64(3), m.Failed)
	assert.Equal(t, int64(1), m.DeadLettered)
}

func TestWorker_UnknownTaskGoesToDeadLetter(t *testing.T) {
	b := newMemBroker()
	w := newTestWorker(t, b)
	ctx := context.Background()

	_, err := NewClient(b, testConfig(), slog.Default()).Enqueue(ctx, "nobody.handles_this", nil)
	require.NoError(t, err)

	_, err = w.ProcessBatch(ctx)
	require.NoError(t, err)

	dlq := b.streams["vogon:tasks:dlq"]
	require.Len(t, dlq, 1)
	assert.Equal(t, "no handler registered", dlq[0].Task.LastError)
}

func TestWorker_RecoversPanics(t *testing.T) {
	b := newMemBroker()
	h := HandlerFunc{TaskName: "boom", Fn: func(context.Context, json.RawMessage) error { panic("nil map") }}
	w := newTestWorker(t, b, h)
	ctx := context.Background()

	_, err := NewClient(b, testConfig(), slog.Default()).Enqueue(ctx, "boom", nil)
	require.NoError(t, err)

	_, err = w.ProcessBatch(ctx)
	require.NoError(t, err)

	retried := b.streams["vogon:tasks"]
	require.Len(t, retried, 2)
	assert.Equal(t, 1, retried[1].Task.Attempts)
	assert.Contains(t, retried[1].Task.LastError, "panicked")
}

func TestWorker_HandlesClaimedEntries(t *testing.T) {
	b := newMemBroker()
	handled := 0
	h := HandlerFunc{TaskName: "x", Fn: func(context.Context, json.RawMessage) error { handled++; return nil }}
	w := newTestWorker(t, b, h)
	b.claimed = []Message{{EntryID: "9-0", Task: Task{ID: "t", Name: "x"}}}

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, handled)
}

func TestWorker_StartStop(t *testing.T) {
	w := newTestWorker(t, newMemBroker())
	ctx := context.Background()

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())
	require.NoError(t, w.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, w.Stop(stopCtx))
	assert.False(t, w.IsRunning())
	require.NoError(t, w.Stop(stopCtx))
}

func TestTruncateError(t *testing.T) {
	assert.Equal(t, "short", truncateError("short"))
	assert.Len(t, truncateError(strings.Repeat("a", 900)), 500)
}

type fixedSizer int

func (f fixedSizer) BatchSize(int) int { return int(f) }

func TestWorker_SizerLimitsBatch(t *testing.T) {
	b := newMemBroker()
	h := HandlerFunc{TaskName: "x", Fn: func(context.Context, json.RawMessage) error { return nil }}
	w := newTestWorker(t, b, h).WithSizer(fixedSizer(2))
	for i := 0; i < 5; i++ {
		_, err := b.Publish(context.Background(), "vogon:tasks", &Task{ID: fmt.Sprint(i), Name: "x"})
		require.NoError(t, err)
	}

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	w.WithSizer(fixedSizer(0))
	n, err = w.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
