package syshealth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor() *hostMonitor {
	m := NewMonitor(DefaultConfig(), nil, slog.Default()).(*hostMonitor)
	m.numCPU = func() int { return 4 }
	m.loadAvg = func(context.Context) (*load.AvgStat, error) { return &load.AvgStat{Load1: 1}, nil }
	m.memStats = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{UsedPercent: 50}, nil
	}
	m.cpuTimes = func(context.Context, bool) ([]cpu.TimesStat, error) {
		return []cpu.TimesStat{{User: 100, System: 50, Idle: 850}}, nil
	}
	return m
}

func TestMonitor_Score(t *testing.T) {
	m := newTestMonitor()

	m.collect()
	snap := m.Snapshot()
	assert.Equal(t, 100, snap.Score)
	assert.Equal(t, ZoneSafe, snap.Zone)
	assert.False(t, snap.Stale)

	// 35% iowait is a warning: 50 * 0.40 = 20
	m.lastCPU = &cpu.TimesStat{}
	m.cpuTimes = func(context.Context, bool) ([]cpu.TimesStat, error) {
		return []cpu.TimesStat{{User: 50, System: 15, Iowait: 35}}, nil
	}
	m.collect()
	assert.Equal(t, 80, m.Snapshot().Score)

	// critical iowait and critical load: 40 + 30 = 70
	m.lastCPU = &cpu.TimesStat{}
	m.cpuTimes = func(context.Context, bool) ([]cpu.TimesStat, error) {
		return []cpu.TimesStat{{User: 50, System: 5, Iowait: 45}}, nil
	}
	m.loadAvg = func(context.Context) (*load.AvgStat, error) { return &load.AvgStat{Load1: 16}, nil }
	m.collect()
	snap = m.Snapshot()
	assert.Equal(t, 30, snap.Score)
	assert.Equal(t, ZoneCritical, snap.Zone)
}

func TestMonitor_KeepsLastValuesOnFailure(t *testing.T) {
	m := newTestMonitor()
	m.collect()

	m.memStats = func(context.Context) (*mem.VirtualMemoryStat, error) { return nil, errors.New("no /proc") }
	m.collect()
	assert.Equal(t, 50.0, m.Snapshot().MemoryPercent)
	assert.Equal(t, 1, m.failures)
}

func TestMonitor_Stale(t *testing.T) {
	m := newTestMonitor()
	m.collect()
	m.snap.CollectedAt = time.Now().Add(-time.Hour)
	assert.True(t, m.Snapshot().Stale)
}

func TestMonitor_StartStop(t *testing.T) {
	m := newTestMonitor()
	require.NoError(t, m.Start())
	require.NoError(t, m.Start())
	require.NoError(t, m.Stop())
	require.NoError(t, m.Stop())
}

func TestZoneFor(t *testing.T) {
	assert.Equal(t, ZoneCritical, zoneFor(0))
	assert.Equal(t, ZoneCritical, zoneFor(33))
	assert.Equal(t, ZoneWarning, zoneFor(34))
	assert.Equal(t, ZoneWarning, zoneFor(66))
	assert.Equal(t, ZoneSafe, zoneFor(67))
}
