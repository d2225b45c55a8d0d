// Package scheduler runs periodic maintenance on the worker with robfig/cron.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/vogonweb/vogon/pkg/logger"
)

// taskTimeout bounds a single run of a scheduled task.
const taskTimeout = 10 * time.Minute

// TaskFunc is the function signature for scheduled tasks
type TaskFunc func(ctx context.Context) error

// Scheduler wraps a cron runner that accepts both cron expressions
// (with seconds) and fixed intervals.
type Scheduler struct {
	cron    *cron.Cron
	log     *slog.Logger
	tasks   map[string]*entry
	mu      sync.RWMutex
	running bool
}

type entry struct {
	id       cron.EntryID
	schedule string
	runs     int
	failures int
	lastErr  string
}

// NewScheduler creates a new scheduler
func NewScheduler(log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		log:   log.With(logger.Scope("scheduler")),
		tasks: make(map[string]*entry),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", slog.Int("tasks", len(s.tasks)))
	return nil
}

// Stop waits for running tasks until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.log.Info("scheduler stopped gracefully")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timeout")
	}
	return nil
}

// AddCronTask adds a task with a cron expression
// Cron format: "second minute hour day-of-month month day-of-week"
func (s *Scheduler) AddCronTask(name, schedule string, task TaskFunc) error {
	return s.add(name, schedule, task)
}

// AddIntervalTask adds a task that runs at a fixed interval
func (s *Scheduler) AddIntervalTask(name string, interval time.Duration, task TaskFunc) error {
	return s.add(name, "@every "+interval.String(), task)
}

// add replaces any task registered under the same name.
func (s *Scheduler) add(name, schedule string, task TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.tasks[name]; ok {
		s.cron.Remove(e.id)
		delete(s.tasks, name)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		s.runTask(name, task)
	})
	if err != nil {
		return err
	}
	s.tasks[name] = &entry{id: id, schedule: schedule}
	s.log.Info("added scheduled task",
		slog.String("name", name),
		slog.String("schedule", schedule))
	return nil
}

// RemoveTask removes a scheduled task
func (s *Scheduler) RemoveTask(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.tasks[name]; ok {
		s.cron.Remove(e.id)
		delete(s.tasks, name)
		s.log.Info("removed task", slog.String("name", name))
	}
}

// RunNow executes a registered task synchronously.
func (s *Scheduler) RunNow(name string, task TaskFunc) {
	s.runTask(name, task)
}

func (s *Scheduler) runTask(name string, task TaskFunc) {
	start := time.Now()
	s.log.Debug("running scheduled task", slog.String("name", name))

	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	err := task(ctx)

	s.mu.Lock()
	if e, ok := s.tasks[name]; ok {
		e.runs++
		e.lastErr = ""
		if err != nil {
			e.failures++
			e.lastErr = err.Error()
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("scheduled task failed",
			slog.String("name", name),
			logger.Error(err),
			slog.Duration("duration", time.Since(start)))
		return
	}
	s.log.Debug("scheduled task completed",
		slog.String("name", name),
		slog.Duration("duration", time.Since(start)))
}

// ListTasks returns the sorted names of all scheduled tasks
func (s *Scheduler) ListTasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TaskInfo describes one scheduled task.
type TaskInfo struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	NextRun   time.Time `json:"nextRun"`
	PrevRun   time.Time `json:"prevRun,omitempty"`
	Runs      int       `json:"runs"`
	Failures  int       `json:"failures"`
	LastError string    `json:"lastError,omitempty"`
}

// GetTaskInfo returns information about all scheduled tasks, sorted by name.
func (s *Scheduler) GetTaskInfo() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := make([]TaskInfo, 0, len(s.tasks))
	for name, e := range s.tasks {
		ce := s.cron.Entry(e.id)
		info = append(info, TaskInfo{
			Name:      name,
			Schedule:  e.schedule,
			NextRun:   ce.Next,
			PrevRun:   ce.Prev,
			Runs:      e.runs,
			Failures:  e.failures,
			LastError: e.lastErr,
		})
	}
	sort.Slice(info, func(i, j int) bool { return info[i].Name < info[j].Name })
	return info
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
