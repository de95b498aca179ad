package admin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/admin"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/audit"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

// OperatorService is the operator API surface.
type OperatorService interface {
	CreateConfig(ctx context.Context, req admin.CreateConfigRequest) (*admin.CreateConfigResponse, error)
	DeactivateConfig(ctx context.Context, id uuid.UUID) error
	DeleteConfig(ctx context.Context, id uuid.UUID) error
	ConfigMetrics(ctx context.Context, id uuid.UUID, window admin.MetricsWindow) (*admin.ConfigMetrics, error)
	FailedEvents(ctx context.Context, params admin.FailedEventsParams) (*admin.FailedEventsResponse, error)
	RetryEvent(ctx context.Context, id uuid.UUID) error
	InspectBlock(ctx context.Context, ip string) (*admin.BlockStatus, error)
	Unblock(ctx context.Context, ip string) error
}

type OperatorHandler struct {
	service OperatorService
	audit   audit.Logger
	logger  *slog.Logger
}

func NewOperatorHandler(service OperatorService, auditLogger audit.Logger, logger *slog.Logger) *OperatorHandler {
	return &OperatorHandler{
		service: service,
		audit:   auditLogger,
		logger:  logger,
	}
}

func (h *OperatorHandler) CreateConfig(c *fiber.Ctx) error {
	var req admin.CreateConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrBadRequest.WithError(err)
	}

	resp, err := h.service.CreateConfig(c.UserContext(), req)
	if err != nil {
		h.record(c, audit.EventConfigCreated, req.SocialAccountID.String(), err, map[string]string{"platform": req.Platform})
		return err
	}

	h.record(c, audit.EventConfigCreated, resp.Config.ID.String(), nil, map[string]string{"platform": string(resp.Config.Platform)})
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *OperatorHandler) DeactivateConfig(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	err = h.service.DeactivateConfig(c.UserContext(), id)
	h.record(c, audit.EventConfigDeactivated, id.String(), err, nil)
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *OperatorHandler) DeleteConfig(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	err = h.service.DeleteConfig(c.UserContext(), id)
	h.record(c, audit.EventConfigDeleted, id.String(), err, nil)
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *OperatorHandler) ConfigMetrics(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var window admin.MetricsWindow
	if window.From, err = queryDate(c, "from"); err != nil {
		return err
	}
	if window.To, err = queryDate(c, "to"); err != nil {
		return err
	}

	resp, err := h.service.ConfigMetrics(c.UserContext(), id, window)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *OperatorHandler) FailedEvents(c *fiber.Ctx) error {
	params := admin.FailedEventsParams{
		TerminalOnly: c.QueryBool("terminal", true),
		Limit:        c.QueryInt("limit", 0),
		Offset:       c.QueryInt("offset", 0),
	}

	resp, err := h.service.FailedEvents(c.UserContext(), params)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *OperatorHandler) RetryEvent(c *fiber.Ctx) error {
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	err = h.service.RetryEvent(c.UserContext(), id)
	h.record(c, audit.EventEventRetried, id.String(), err, nil)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"event_id": id,
		"status":   domain.StatusPending,
	})
}

func (h *OperatorHandler) InspectBlock(c *fiber.Ctx) error {
	info, err := h.service.InspectBlock(c.UserContext(), c.Params("ip"))
	if err != nil {
		return err
	}
	return c.JSON(info)
}

func (h *OperatorHandler) Unblock(c *fiber.Ctx) error {
	ip := c.Params("ip")
	err := h.service.Unblock(c.UserContext(), ip)
	h.record(c, audit.EventIPUnblocked, ip, err, nil)
	if err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// record writes the audit trail for a mutating operator call. A failed
// audit write is logged and never fails the request.
func (h *OperatorHandler) record(c *fiber.Ctx, eventType audit.EventType, target string, cause error, metadata map[string]string) {
	operator, _ := middleware.GetOperator(c)

	event := audit.Event{
		EventType: eventType,
		Actor:     operator,
		Target:    target,
		Success:   cause == nil,
		Metadata:  metadata,
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
	if rid, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		event.RequestID = rid
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	if err := h.audit.Log(c.UserContext(), event); err != nil {
		h.logger.Error("failed to write audit event", "event_type", eventType, "error", err)
	}
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, domain.ErrBadRequest.WithError(fmt.Errorf("invalid %s", name))
	}
	return id, nil
}

func queryDate(c *fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, domain.ErrBadRequest.WithError(fmt.Errorf("%s must be YYYY-MM-DD", name))
	}
	return t, nil
}
