package syshealth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	healthScore = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vogon",
		Name:      "system_health_score",
		Help:      "Host health score (0-100).",
	})

	cpuLoad = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vogon",
		Name:      "system_cpu_load_1m",
		Help:      "One minute load average.",
	})

	ioWait = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vogon",
		Name:      "system_io_wait_percent",
		Help:      "CPU time spent waiting on I/O since the previous sample.",
	})

	memoryUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vogon",
		Name:      "system_memory_used_percent",
		Help:      "Used memory percentage.",
	})

	dbPoolUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vogon",
		Name:      "system_db_pool_used_percent",
		Help:      "Database connections in use as a percentage of the pool.",
	})

	workerBatchSize = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "vogon",
		Name:      "tasks_worker_batch_size",
		Help:      "Current batch size allowed by the scaler.",
	})
)
