// Package metrics holds the Prometheus collectors of the job pipeline:
// crew_jobs_submitted_total, crew_jobs_processed_total and
// crew_job_duration_seconds (jobs.go). Each file enqueues its collectors
// from init(); main flushes the queue once through MustRegister before the
// /metrics endpoint is served.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once       sync.Once
	collectors []prometheus.Collector
)

func register(cs ...prometheus.Collector) {
	collectors = append(collectors, cs...)
}

// MustRegister registers every enqueued collector exactly once; later calls
// are no-ops.
func MustRegister() {
	once.Do(func() {
		if len(collectors) > 0 {
			prometheus.MustRegister(collectors...)
		}
	})
}
