package submit

import (
	"context"
	"encoding/json"
	"errors"

	"pkt.systems/codecanvas/schema"
	"pkt.systems/pslog"
)

// Sink receives submission documents.
type Sink interface {
	Submit(ctx context.Context, doc schema.Submission) error
}

// LogSink writes submissions to the logger, the server-side equivalent of
// dumping them to a developer console.
type LogSink struct {
	Logger pslog.Logger
}

// NewLogSink constructs a LogSink. A nil logger uses the context logger.
func NewLogSink(logger pslog.Logger) *LogSink {
	return &LogSink{Logger: logger}
}

// Submit implements Sink.
func (s *LogSink) Submit(ctx context.Context, doc schema.Submission) error {
	log := s.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	log.Info("submission received", "files", len(doc.Files), "terminal_lines", len(doc.TerminalContent), "document", string(data))
	return nil
}

// Multi fans a submission out to every sink and joins their errors.
type Multi []Sink

// Submit implements Sink.
func (m Multi) Submit(ctx context.Context, doc schema.Submission) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Submit(ctx, doc); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
