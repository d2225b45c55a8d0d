package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func TestNewScheduler(t *testing.T) {
	s := NewScheduler(slog.Default())
	assert.False(t, s.IsRunning())
	assert.Empty(t, s.ListTasks())
	assert.Empty(t, s.GetTaskInfo())
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(slog.Default())
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(ctx))

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	assert.False(t, s.IsRunning())
	require.NoError(t, s.Stop(stopCtx))
}

func TestScheduler_ListTasksSorted(t *testing.T) {
	s := NewScheduler(slog.Default())
	require.NoError(t, s.AddIntervalTask("stream_trim", time.Hour, noop))
	require.NoError(t, s.AddIntervalTask("representation_requeue", time.Minute, noop))

	assert.Equal(t, []string{"representation_requeue", "stream_trim"}, s.ListTasks())
}

func TestScheduler_ReplaceExisting(t *testing.T) {
	s := NewScheduler(slog.Default())
	require.NoError(t, s.AddIntervalTask("task", time.Minute, noop))
	require.NoError(t, s.AddCronTask("task", "0 0 2 * * *", noop))

	info := s.GetTaskInfo()
	require.Len(t, info, 1)
	assert.Equal(t, "0 0 2 * * *", info[0].Schedule)
	assert.Len(t, s.cron.Entries(), 1)
}

func TestScheduler_InvalidCron(t *testing.T) {
	s := NewScheduler(slog.Default())
	assert.Error(t, s.AddCronTask("bad", "every tuesday", noop))
	assert.Empty(t, s.ListTasks())
}

func TestScheduler_RemoveTask(t *testing.T) {
	s := NewScheduler(slog.Default())
	require.NoError(t, s.AddIntervalTask("task", time.Minute, noop))
	s.RemoveTask("task")
	s.RemoveTask("missing")
	assert.Empty(t, s.ListTasks())
	assert.Empty(t, s.cron.Entries())
}

func TestScheduler_RunNowRecordsOutcome(t *testing.T) {
	s := NewScheduler(slog.Default())
	fail := true
	task := func(context.Context) error {
		if fail {
			return errors.New("redis unavailable")
		}
		return nil
	}
	require.NoError(t, s.AddIntervalTask("trim", time.Hour, task))

	s.RunNow("trim", task)
	info := s.GetTaskInfo()
	require.Len(t, info, 1)
	assert.Equal(t, 1, info[0].Runs)
	assert.Equal(t, 1, info[0].Failures)
	assert.Equal(t, "redis unavailable", info[0].LastError)

	fail = false
	s.RunNow("trim", task)
	info = s.GetTaskInfo()
	assert.Equal(t, 2, info[0].Runs)
	assert.Equal(t, 1, info[0].Failures)
	assert.Empty(t, info[0].LastError)
}

func TestAddScheduledTask(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		interval time.Duration
		want     string
	}{
		{"cron overrides interval", "0 */5 * * * *", 5 * time.Minute, "0 */5 * * * *"},
		{"falls back to interval", "", 5 * time.Minute, "@every 5m0s"},
		{"no interval skips", "", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(slog.Default())
			require.NoError(t, addScheduledTask(s, slog.Default(), "task", tt.schedule, tt.interval, noop))

			info := s.GetTaskInfo()
			if tt.want == "" {
				assert.Empty(t, info)
				return
			}
			require.Len(t, info, 1)
			assert.Equal(t, tt.want, info[0].Schedule)
		})
	}
}

type fakeRequeuer struct {
	age   time.Duration
	limit int
	n     int
	err   error
}

func (f *fakeRequeuer) RequeueStale(_ context.Context, age time.Duration, limit int) (int, error) {
	f.age, f.limit = age, limit
	return f.n, f.err
}

type fakeTrimmer struct {
	calls int
	err   error
}

func (f *fakeTrimmer) Trim(context.Context) error {
	f.calls++
	return f.err
}

func TestRepresentationRequeueTask(t *testing.T) {
	sets := &fakeRequeuer{n: 3}
	task := NewRepresentationRequeueTask(sets, 10*time.Minute, 0, slog.Default())

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 10*time.Minute, sets.age)
	assert.Equal(t, 200, sets.limit)

	sets.err = errors.New("db down")
	assert.Error(t, task.Run(context.Background()))
}

func TestStreamTrimTask(t *testing.T) {
	streams := &fakeTrimmer{}
	task := NewStreamTrimTask(streams, slog.Default())

	require.NoError(t, task.Run(context.Background()))
	assert.Equal(t, 1, streams.calls)

	streams.err = errors.New("trim failed")
	assert.Error(t, task.Run(context.Background()))
}
