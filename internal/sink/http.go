package sink

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/signature"
)

const (
	HeaderForwardSignature = "X-Socialhook-Signature"
	HeaderForwardEvent     = "X-Socialhook-Event"
	HeaderForwardID        = "X-Socialhook-Delivery"
)

// HTTPOptions configures the HTTP forwarder.
type HTTPOptions struct {
	URL string
	// Secret signs each body; receivers check HeaderForwardSignature.
	Secret     string
	Timeout    time.Duration
	MaxElapsed time.Duration
}

// HTTPForwarder POSTs normalized events to a downstream endpoint. A 4xx
// answer other than 408 and 429 is not retried: the receiver rejected the
// event and will keep rejecting it.
type HTTPForwarder struct {
	url        string
	secret     string
	client     *http.Client
	maxElapsed time.Duration
	logger     *slog.Logger
}

func NewHTTPForwarder(opts HTTPOptions, logger *slog.Logger) *HTTPForwarder {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxElapsed <= 0 {
		opts.MaxElapsed = 5 * time.Second
	}

	return &HTTPForwarder{
		url:        opts.URL,
		secret:     opts.Secret,
		client:     &http.Client{Timeout: opts.Timeout},
		maxElapsed: opts.MaxElapsed,
		logger:     logger,
	}
}

// Sign returns the signature header value for payload.
func Sign(secret string, payload []byte) string {
	return "sha256=" + hex.EncodeToString(signature.Compute(secret, payload))
}

func (f *HTTPForwarder) Publish(ctx context.Context, event *domain.NormalizedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode normalized event: %w", err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = f.maxElapsed

	operation := func() error {
		return f.send(ctx, event, payload)
	}
	notify := func(err error, next time.Duration) {
		f.logger.Warn("forward failed, retrying",
			"webhook_event_id", event.WebhookEventID,
			"next_retry_in", next,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return fmt.Errorf("forward event: %w", err)
	}
	return nil
}

func (f *HTTPForwarder) send(ctx context.Context, event *domain.NormalizedEvent, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "socialhook/1.0")
	req.Header.Set(HeaderForwardEvent, event.EventType)
	req.Header.Set(HeaderForwardID, event.WebhookEventID.String())
	if f.secret != "" {
		req.Header.Set(HeaderForwardSignature, Sign(f.secret, payload))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return fmt.Errorf("downstream answered HTTP %d", resp.StatusCode)
	default:
		return backoff.Permanent(fmt.Errorf("downstream rejected event: HTTP %d", resp.StatusCode))
	}
}

func (f *HTTPForwarder) Close() error {
	f.client.CloseIdleConnections()
	return nil
}
