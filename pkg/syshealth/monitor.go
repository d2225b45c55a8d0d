package syshealth

import (
	"context"
	"database/sql"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/uptrace/bun"

	"github.com/vogonweb/vogon/pkg/logger"
)

type hostMonitor struct {
	cfg *Config
	db  *sql.DB
	log *slog.Logger

	mu       sync.RWMutex
	snap     Snapshot
	stopCh   chan struct{}
	running  bool
	lastCPU  *cpu.TimesStat
	failures int

	// collectors, replaced in tests
	loadAvg  func(context.Context) (*load.AvgStat, error)
	cpuTimes func(context.Context, bool) ([]cpu.TimesStat, error)
	memStats func(context.Context) (*mem.VirtualMemoryStat, error)
	numCPU   func() int
}

// NewMonitor creates a monitor. db may be nil, in which case pool usage is 0.
func NewMonitor(cfg *Config, db *bun.DB, log *slog.Logger) Monitor {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &hostMonitor{
		cfg:      cfg,
		log:      log.With(logger.Scope("syshealth")),
		snap:     Snapshot{Score: 100, Zone: ZoneSafe},
		loadAvg:  load.AvgWithContext,
		cpuTimes: cpu.TimesWithContext,
		memStats: mem.VirtualMemoryWithContext,
		numCPU:   runtime.NumCPU,
	}
	if db != nil {
		m.db = db.DB
	}
	return m
}

func (m *hostMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.running = true
	m.stopCh = make(chan struct{})

	go func(stop <-chan struct{}) {
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()
		m.collect()
		for {
			select {
			case <-ticker.C:
				m.collect()
			case <-stop:
				return
			}
		}
	}(m.stopCh)

	m.log.Info("system health monitor started", slog.Duration("interval", m.cfg.Interval))
	return nil
}

func (m *hostMonitor) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return nil
	}
	m.running = false
	close(m.stopCh)
	return nil
}

func (m *hostMonitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snap
	if time.Since(s.CollectedAt) > m.cfg.StalenessThreshold {
		s.Stale = true
	}
	return s
}

func (m *hostMonitor) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CollectTimeout)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.snap
	ok := true

	if l, err := m.loadAvg(ctx); err == nil {
		next.CPULoadAvg = l.Load1
	} else {
		ok = false
		m.log.Warn("load average unavailable", logger.Error(err))
	}

	if times, err := m.cpuTimes(ctx, false); err == nil && len(times) > 0 {
		t := times[0]
		if m.lastCPU != nil {
			if total := t.Total() - m.lastCPU.Total(); total > 0 {
				next.IOWaitPercent = (t.Iowait - m.lastCPU.Iowait) / total * 100
			}
		}
		m.lastCPU = &t
	} else {
		ok = false
		m.log.Warn("cpu times unavailable", logger.Error(err))
	}

	if v, err := m.memStats(ctx); err == nil {
		next.MemoryPercent = v.UsedPercent
	} else {
		ok = false
		m.log.Warn("memory stats unavailable", logger.Error(err))
	}

	if m.db != nil {
		if st := m.db.Stats(); st.MaxOpenConnections > 0 {
			next.DBPoolPercent = float64(st.InUse) / float64(st.MaxOpenConnections) * 100
		}
	}

	if ok {
		m.failures = 0
	} else if m.failures++; m.failures >= 3 {
		m.log.Error("persistent metric collection failures", slog.Int("failures", m.failures))
	}

	cores := float64(m.numCPU())
	if cores == 0 {
		cores = 1
	}
	penalty := 0.40*penalty(next.IOWaitPercent, m.cfg.IOWaitWarning, m.cfg.IOWaitCritical) +
		0.30*penalty(next.CPULoadAvg/cores, m.cfg.CPULoadWarning, m.cfg.CPULoadCritical) +
		0.20*penalty(next.DBPoolPercent, m.cfg.DBPoolWarning, m.cfg.DBPoolCritical) +
		0.10*penalty(next.MemoryPercent, m.cfg.MemoryWarning, m.cfg.MemoryCritical)

	next.Score = max(0, 100-int(penalty))
	next.Zone = zoneFor(next.Score)
	next.CollectedAt = time.Now()
	next.Stale = false

	if next.Zone != m.snap.Zone {
		m.log.Warn("system health zone changed",
			slog.String("from", string(m.snap.Zone)),
			slog.String("to", string(next.Zone)),
			slog.Int("score", next.Score))
	}
	m.snap = next

	healthScore.Set(float64(next.Score))
	cpuLoad.Set(next.CPULoadAvg)
	ioWait.Set(next.IOWaitPercent)
	memoryUsed.Set(next.MemoryPercent)
	dbPoolUsed.Set(next.DBPoolPercent)
}

func penalty(value, warning, critical float64) float64 {
	switch {
	case value >= critical:
		return 100
	case value >= warning:
		return 50
	default:
		return 0
	}
}
