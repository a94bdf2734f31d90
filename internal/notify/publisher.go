// Package notify mirrors audit job events onto NATS subjects with
// OpenTelemetry trace propagation.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/raysh454/sitepulse/internal/logging"
)

// DefaultSubjectPrefix is prepended to the job id of every published event.
const DefaultSubjectPrefix = "sitepulse.audit"

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// msgPublisher is the part of *nats.Conn the Publisher needs.
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// Publisher publishes JSON job events to "<prefix>.<jobID>".
type Publisher struct {
	conn   msgPublisher
	nc     *nats.Conn
	prefix string
	logger logging.Logger
}

// Connect dials a NATS server and returns a Publisher owning the connection.
func Connect(url string, logger logging.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	nc, err := nats.Connect(url,
		nats.Name("sitepulse"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", logging.Field{Key: "error", Value: err.Error()})
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	p := New(nc, DefaultSubjectPrefix, logger)
	p.nc = nc
	return p, nil
}

// New wraps an existing connection. An empty prefix uses DefaultSubjectPrefix.
func New(conn msgPublisher, prefix string, logger logging.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Publisher{
		conn:   conn,
		prefix: prefix,
		logger: logger.With(logging.Field{Key: "component", Value: "notify"}),
	}
}

// Subject returns the subject events of jobID are published on.
func (p *Publisher) Subject(jobID string) string {
	return p.prefix + "." + jobID
}

// Publish serializes v as JSON and publishes it for jobID.
// Trace context from ctx is injected into the message headers.
func (p *Publisher) Publish(ctx context.Context, jobID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := &nats.Msg{
		Subject: p.Subject(jobID),
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return p.conn.PublishMsg(msg)
}

// Close drains the connection if the Publisher owns one.
func (p *Publisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("nats drain failed", logging.Field{Key: "error", Value: err.Error()})
		p.nc.Close()
	}
}
