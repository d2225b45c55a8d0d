package syshealth

import "time"

// Config holds thresholds for the monitor. Each metric contributes a penalty of
// 0 (below warning), 50 (warning) or 100 (critical), weighted into the score.
type Config struct {
	Interval           time.Duration
	CollectTimeout     time.Duration
	StalenessThreshold time.Duration

	IOWaitWarning   float64
	IOWaitCritical  float64
	CPULoadWarning  float64 // load per core
	CPULoadCritical float64
	MemoryWarning   float64
	MemoryCritical  float64
	DBPoolWarning   float64
	DBPoolCritical  float64
}

// DefaultConfig returns production thresholds.
func DefaultConfig() *Config {
	return &Config{
		Interval:           30 * time.Second,
		CollectTimeout:     5 * time.Second,
		StalenessThreshold: 2 * time.Minute,
		IOWaitWarning:      30,
		IOWaitCritical:     40,
		CPULoadWarning:     2,
		CPULoadCritical:    3,
		MemoryWarning:      85,
		MemoryCritical:     95,
		DBPoolWarning:      75,
		DBPoolCritical:     90,
	}
}
