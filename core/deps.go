package core

import (
	"pkt.systems/codecanvas/internal/metrics"
	"pkt.systems/pslog"
)

// ServiceDeps captures optional dependencies for the core service.
type ServiceDeps struct {
	Executor    Executor
	Submissions SubmissionSink
	EventSink   EventSink
	Metrics     *metrics.Collectors
	Logger      pslog.Logger
}
