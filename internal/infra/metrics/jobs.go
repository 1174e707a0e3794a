package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsSubmittedTotal, jobsProcessedTotal, jobDurationSeconds) }

var jobsSubmittedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "crew_jobs_submitted_total",
		Help: "Total number of crew jobs accepted for execution.",
	},
)

var jobsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "crew_jobs_processed_total",
		Help: "Total number of crew jobs that reached a terminal state, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var jobDurationSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "crew_job_duration_seconds",
		Help:    "Wall time from job pickup to terminal state.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s .. ~17min
	},
)

func IncJobSubmitted() { jobsSubmittedTotal.Inc() }

func IncJobProcessed(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveJobDuration(seconds float64) { jobDurationSeconds.Observe(seconds) }

func norm(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "unknown"
	}
	return s
}
