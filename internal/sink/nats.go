package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

const (
	DefaultStream        = "WEBHOOKS"
	DefaultSubjectPrefix = "webhooks.normalized"
)

// JetStream is the subset of jetstream.JetStream the publisher uses.
type JetStream interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSOptions configures the broker connection.
type NATSOptions struct {
	URL           string
	Stream        string
	SubjectPrefix string
	// MaxElapsed bounds publish retries for one event.
	MaxElapsed time.Duration
}

// NATSPublisher publishes normalized events to JetStream on
// <prefix>.<platform>.
type NATSPublisher struct {
	conn       *nats.Conn
	js         JetStream
	prefix     string
	maxElapsed time.Duration
	logger     *slog.Logger
}

// NewNATSPublisher connects, ensures the stream exists and returns a
// publisher.
func NewNATSPublisher(ctx context.Context, opts NATSOptions, logger *slog.Logger) (*NATSPublisher, error) {
	if opts.Stream == "" {
		opts.Stream = DefaultStream
	}
	if opts.SubjectPrefix == "" {
		opts.SubjectPrefix = DefaultSubjectPrefix
	}

	nc, err := nats.Connect(opts.URL,
		nats.Name("socialhook"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       opts.Stream,
		Subjects:   []string{opts.SubjectPrefix + ".>"},
		Duplicates: 10 * time.Minute,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", opts.Stream, err)
	}

	p := NewNATSPublisherWithJetStream(js, opts.SubjectPrefix, logger)
	p.conn = nc
	if opts.MaxElapsed > 0 {
		p.maxElapsed = opts.MaxElapsed
	}
	return p, nil
}

// NewNATSPublisherWithJetStream wraps an existing JetStream context.
func NewNATSPublisherWithJetStream(js JetStream, prefix string, logger *slog.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{
		js:         js,
		prefix:     prefix,
		maxElapsed: 5 * time.Second,
		logger:     logger,
	}
}

// Subject returns the subject events of platform are published on.
func (p *NATSPublisher) Subject(platform domain.Platform) string {
	return p.prefix + "." + string(platform)
}

// Publish sends event with the webhook event id as the JetStream message id,
// so a retried publish inside the duplicate window is stored once.
func (p *NATSPublisher) Publish(ctx context.Context, event *domain.NormalizedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode normalized event: %w", err)
	}

	subject := p.Subject(event.Platform)
	msgID := event.WebhookEventID.String()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = p.maxElapsed

	var attempt int
	operation := func() error {
		_, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(msgID))
		return err
	}
	notify := func(err error, next time.Duration) {
		attempt++
		p.logger.Warn("publish failed, retrying",
			"subject", subject,
			"webhook_event_id", msgID,
			"attempt", attempt,
			"next_retry_in", next,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
