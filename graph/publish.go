package graph

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nats-io/nats.go"
)

// DefaultRunCompletedSubject is the subject RunCompleted events go to.
const DefaultRunCompletedSubject = "stb.graph.run.completed"

// Publisher sends raw messages to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSPublisher publishes over a core NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// ConnectNATS dials url and returns a publisher owning the connection.
func ConnectNATS(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("stbgraph"),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrapf(err, "connect to NATS at %s", url),
			"set nats.url to an empty string to disable the completion event")
	}
	return &NATSPublisher{conn: conn}, nil
}

// NewNATSPublisher wraps an existing connection. The caller keeps ownership.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// Publish sends data and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.conn.Publish(subject, data); err != nil {
		return errors.Wrapf(err, "publish to %s", subject)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return errors.Wrapf(err, "flush %s", subject)
	}
	return nil
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}

// PublishRunCompleted publishes ev to subject. A nil publisher skips the
// step.
func PublishRunCompleted(ctx context.Context, pub Publisher, subject string, ev *RunCompleted) error {
	if pub == nil {
		return nil
	}
	if subject == "" {
		subject = DefaultRunCompletedSubject
	}
	if err := ev.Validate(); err != nil {
		return errors.Wrap(err, "invalid run event")
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal run event")
	}
	if err := pub.Publish(ctx, subject, data); err != nil {
		return errors.Wrap(err, "publish run event")
	}
	return nil
}
