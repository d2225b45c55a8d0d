package syshealth

import (
	"sync"
	"time"
)

const (
	decreaseCooldown = time.Minute
	increaseCooldown = 5 * time.Minute
)

// Scaler sizes worker batches from the monitor's zone: full size when safe,
// half when warning, the minimum when critical. Decreases apply after a one
// minute cooldown (immediately when critical); increases wait five minutes and
// grow by at most half the current size.
type Scaler struct {
	monitor Monitor
	min     int
	max     int
	enabled bool

	mu      sync.Mutex
	current int
	lastAdj time.Time
	now     func() time.Time
}

// NewScaler creates a scaler. A nil monitor disables scaling.
func NewScaler(monitor Monitor, minSize, maxSize int) *Scaler {
	if minSize < 1 {
		minSize = 1
	}
	if maxSize < minSize {
		maxSize = minSize
	}
	return &Scaler{
		monitor: monitor,
		min:     minSize,
		max:     maxSize,
		enabled: monitor != nil,
		current: maxSize,
		lastAdj: time.Now(),
		now:     time.Now,
	}
}

// BatchSize returns the currently allowed batch size. When scaling is
// disabled it returns static.
func (s *Scaler) BatchSize(static int) int {
	if s == nil || !s.enabled {
		return static
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.monitor.Snapshot()
	zone := snap.Zone
	if snap.Stale {
		zone = ZoneWarning
	}

	target := s.max
	switch zone {
	case ZoneCritical:
		target = s.min
	case ZoneWarning:
		target = max(s.min, s.max/2)
	}

	now := s.now()
	since := now.Sub(s.lastAdj)
	switch {
	case target < s.current && (zone == ZoneCritical || since >= decreaseCooldown):
		s.current = target
		s.lastAdj = now
	case target > s.current && since >= increaseCooldown:
		s.current = min(target, s.current+max(1, s.current/2))
		s.lastAdj = now
	}

	s.current = min(max(s.current, s.min), s.max)
	workerBatchSize.Set(float64(s.current))
	return s.current
}
