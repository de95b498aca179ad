package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/ingest"
)

// Ingester runs one inbound request through the ingestion pipeline.
type Ingester interface {
	Handle(ctx context.Context, req *ingest.Request) *ingest.Response
}

type WebhookHandler struct {
	pipeline Ingester
	logger   *slog.Logger
}

func NewWebhookHandler(pipeline Ingester, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		pipeline: pipeline,
		logger:   logger,
	}
}

// Receive handles both handshakes (GET) and deliveries (POST). The pipeline
// decides the status and body; this handler only translates to and from
// Fiber.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	query, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		// Keep what parsed; a malformed pair must not hide hub.challenge.
		h.logger.Debug("malformed query string", "error", err, "ip", c.IP())
	}

	headers := make(http.Header)
	for k, values := range c.GetReqHeaders() {
		for _, v := range values {
			headers.Add(k, v)
		}
	}

	// fasthttp reuses the body buffer once the handler returns.
	body := append([]byte(nil), c.Body()...)

	resp := h.pipeline.Handle(c.UserContext(), &ingest.Request{
		Platform: c.Params("platform"),
		Method:   c.Method(),
		Headers:  headers,
		Query:    query,
		Body:     body,
		IP:       c.IP(),
	})

	for k, v := range resp.Headers {
		c.Set(k, v)
	}
	if resp.ContentType != "" {
		c.Set(fiber.HeaderContentType, resp.ContentType)
	}

	return c.Status(resp.StatusCode).Send(resp.Body)
}
