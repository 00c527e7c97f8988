package core

import (
	"context"

	"pkt.systems/codecanvas/schema"
)

// Executor runs a script source and captures its console output.
type Executor interface {
	Run(ctx context.Context, source string) schema.ExecutionResult
}

// SubmissionSink receives submission documents.
type SubmissionSink interface {
	Submit(ctx context.Context, doc schema.Submission) error
}
