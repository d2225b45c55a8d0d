// Package syshealth samples host load and scales worker batch sizes with it.
package syshealth

import "time"

// Zone classifies the current score.
type Zone string

const (
	ZoneCritical Zone = "critical" // score 0-33
	ZoneWarning  Zone = "warning"  // score 34-66
	ZoneSafe     Zone = "safe"     // score 67-100
)

// Snapshot is the latest collected sample.
type Snapshot struct {
	Score         int       `json:"score"`
	Zone          Zone      `json:"zone"`
	CPULoadAvg    float64   `json:"cpu_load_avg"`
	IOWaitPercent float64   `json:"io_wait_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	DBPoolPercent float64   `json:"db_pool_percent"`
	CollectedAt   time.Time `json:"collected_at"`
	Stale         bool      `json:"stale"`
}

// Monitor collects host metrics in the background.
type Monitor interface {
	Start() error
	Stop() error
	Snapshot() Snapshot
}

func zoneFor(score int) Zone {
	switch {
	case score <= 33:
		return ZoneCritical
	case score <= 66:
		return ZoneWarning
	default:
		return ZoneSafe
	}
}
