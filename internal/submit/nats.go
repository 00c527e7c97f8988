package submit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/nats-io/nats.go"

	"pkt.systems/codecanvas/schema"
	"pkt.systems/pslog"
)

// DefaultSubject is the NATS subject submissions are published on.
const DefaultSubject = "codecanvas.submissions"

type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes submissions as JSON on a NATS subject.
type NATSSink struct {
	pub     publisher
	conn    *nats.Conn
	subject string
}

// DialNATS connects to url and returns a sink publishing on subject.
func DialNATS(url, subject string, opts ...nats.Option) (*NATSSink, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("nats url is required")
	}
	conn, err := nats.Connect(url, append([]nats.Option{nats.Name("codecanvas")}, opts...)...)
	if err != nil {
		return nil, err
	}
	sink := newNATSSink(conn, subject)
	sink.conn = conn
	return sink, nil
}

func newNATSSink(pub publisher, subject string) *NATSSink {
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}
	return &NATSSink{pub: pub, subject: subject}
}

// Subject returns the publish subject.
func (s *NATSSink) Subject() string {
	return s.subject
}

// Submit implements Sink.
func (s *NATSSink) Submit(ctx context.Context, doc schema.Submission) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := s.pub.Publish(s.subject, data); err != nil {
		return err
	}
	pslog.Ctx(ctx).Debug("submission published", "subject", s.subject, "bytes", len(data))
	return nil
}

// Close drains the underlying connection when the sink owns one.
func (s *NATSSink) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}
