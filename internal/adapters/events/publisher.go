package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/melih/requirement-validator/internal/core/domain"
	"github.com/melih/requirement-validator/internal/core/ports"
)

const (
	DefaultSubject = "requirements.validated"

	drainTimeout = 5 * time.Second
)

// Publisher sends validation records to NATS.
type Publisher struct {
	nc      *nats.Conn
	subject string
	closed  chan struct{}
}

var _ ports.EventPublisher = (*Publisher)(nil)

func NewPublisher(url, subject string, log zerolog.Logger) (*Publisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	closed := make(chan struct{})
	opts := []nats.Option{
		nats.Name("requirement-validator"),
		nats.DrainTimeout(drainTimeout),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &Publisher{nc: nc, subject: subject, closed: closed}, nil
}

func (p *Publisher) PublishValidation(ctx context.Context, rec *domain.Record) error {
	if p.nc == nil || p.nc.IsClosed() {
		return fmt.Errorf("nats not connected")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject, payload)
}

// Close flushes pending messages and waits for the connection to close.
func (p *Publisher) Close() {
	if p.nc == nil || p.nc.IsClosed() {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return
	}
	select {
	case <-p.closed:
	case <-time.After(drainTimeout + time.Second):
		p.nc.Close()
	}
}
