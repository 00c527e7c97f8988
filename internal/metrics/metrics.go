package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "codecanvas"

// Collectors groups the playground metrics. A nil *Collectors is valid and
// records nothing.
type Collectors struct {
	FileOps      *prometheus.CounterVec
	ScriptRuns   *prometheus.CounterVec
	ScriptTime   prometheus.Histogram
	Submissions  *prometheus.CounterVec
	Sessions     prometheus.Gauge
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New builds collectors and registers them with reg when reg is not nil.
func New(reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		FileOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_operations_total",
			Help:      "Workspace file operations, labeled by operation and result.",
		}, []string{"op", "result"}),
		ScriptRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_runs_total",
			Help:      "Script executions, labeled by outcome.",
		}, []string{"outcome"}),
		ScriptTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "script_run_duration_seconds",
			Help:      "Histogram of script execution durations.",
			Buckets:   prometheus.DefBuckets,
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submission documents, labeled by result.",
		}, []string{"result"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "Number of open playground sessions.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed, labeled by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of request durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	if reg != nil {
		for _, collector := range []prometheus.Collector{
			c.FileOps, c.ScriptRuns, c.ScriptTime, c.Submissions, c.Sessions, c.HTTPRequests, c.HTTPDuration,
		} {
			if err := reg.Register(collector); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// FileOp counts a workspace operation.
func (c *Collectors) FileOp(op string, err error) {
	if c == nil {
		return
	}
	c.FileOps.WithLabelValues(op, result(err)).Inc()
}

// ScriptRun records one script execution.
func (c *Collectors) ScriptRun(failed bool, elapsed time.Duration) {
	if c == nil {
		return
	}
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	c.ScriptRuns.WithLabelValues(outcome).Inc()
	c.ScriptTime.Observe(elapsed.Seconds())
}

// Submission counts a dispatched submission.
func (c *Collectors) Submission(err error) {
	if c == nil {
		return
	}
	c.Submissions.WithLabelValues(result(err)).Inc()
}

// SessionOpened increments the open session gauge.
func (c *Collectors) SessionOpened() {
	if c == nil {
		return
	}
	c.Sessions.Inc()
}

// SessionClosed decrements the open session gauge.
func (c *Collectors) SessionClosed() {
	if c == nil {
		return
	}
	c.Sessions.Dec()
}

// HTTPRequest records one HTTP request.
func (c *Collectors) HTTPRequest(method, route, status string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
