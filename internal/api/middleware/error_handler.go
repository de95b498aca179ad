package middleware

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/security"
)

const webhookPrefix = "/webhooks"

// ErrorHandler renders errors returned by operator and infrastructure
// routes. Webhook routes write their own responses, except for bodies the
// server refuses before any handler runs; those get the webhook error shape.
// Security headers are set here too since middleware is skipped on that path.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		for k, v := range security.Headers {
			c.Set(k, v)
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) && fiberErr.Code == fiber.StatusRequestEntityTooLarge &&
			strings.HasPrefix(c.Path(), webhookPrefix) {
			logger.Warn("webhook body over server limit", slog.String("ip", c.IP()))
			return c.Status(domain.ErrPayloadTooLarge.StatusCode).JSON(fiber.Map{
				"status":  "error",
				"message": domain.ErrPayloadTooLarge.Message,
			})
		}

		if fiberErr != nil {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    "HTTP_ERROR",
					"message": fiberErr.Message,
				},
			})
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= 500 {
				logger.Error("internal error",
					slog.String("code", appErr.Code),
					slog.String("request_id", requestID(c)),
					slog.Any("error", appErr.Err),
				)
			}

			body := fiber.Map{
				"code":    appErr.Code,
				"message": appErr.Message,
			}
			// Validation details help operators fix their request.
			if appErr.StatusCode < 500 && appErr.Err != nil {
				body["details"] = appErr.Err.Error()
			}

			return c.Status(appErr.StatusCode).JSON(fiber.Map{"error": body})
		}

		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
			slog.String("request_id", requestID(c)),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    domain.ErrInternal.Code,
				"message": domain.ErrInternal.Message,
			},
		})
	}
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestid.ConfigDefault.ContextKey).(string)
	return id
}
