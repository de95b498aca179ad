package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/admin"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp() *fiber.App {
	logger := testLogger()
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger)})
	app.Use(requestid.New())
	app.Use(Recover(logger))
	app.Use(Logger(logger))
	app.Use(SecurityHeaders())
	return app
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, body io.Reader) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestOperatorAuth(t *testing.T) {
	jwtService := admin.NewJWTService("test-secret", "socialhook", time.Hour)

	operatorToken, err := jwtService.GenerateToken("oncall", admin.RoleOperator)
	require.NoError(t, err)
	viewerToken, err := jwtService.GenerateToken("viewer", "viewer")
	require.NoError(t, err)

	app := newTestApp()
	app.Use(OperatorAuth(OperatorAuthDependencies{Tokens: jwtService, Logger: testLogger()}))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		subject, err := GetOperator(c)
		if err != nil {
			return err
		}
		return c.SendString(subject)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "valid operator", header: "Bearer " + operatorToken, wantStatus: fiber.StatusOK},
		{name: "missing header", header: "", wantStatus: fiber.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "wrong scheme", header: "Basic " + operatorToken, wantStatus: fiber.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "garbage token", header: "Bearer not.a.token", wantStatus: fiber.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "wrong role", header: "Bearer " + viewerToken, wantStatus: fiber.StatusForbidden, wantCode: "FORBIDDEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.header)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantStatus == fiber.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				assert.Equal(t, "oncall", string(body))
				return
			}
			assert.Equal(t, tt.wantCode, decodeError(t, resp.Body).Error.Code)
		})
	}
}

func TestErrorHandler(t *testing.T) {
	app := newTestApp()
	app.Get("/app-error", func(c *fiber.Ctx) error {
		return domain.ErrValidationFailed.WithError(errors.New("platform is required"))
	})
	app.Get("/internal", func(c *fiber.Ctx) error {
		return domain.ErrInternal.WithError(errors.New("db password is hunter2"))
	})
	app.Get("/fiber-error", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/unknown", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	t.Run("app error with details", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/app-error", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

		body := decodeError(t, resp.Body)
		assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
		assert.Equal(t, "platform is required", body.Error.Details)
	})

	t.Run("internal error hides cause", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/internal", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

		body := decodeError(t, resp.Body)
		assert.Empty(t, body.Error.Details)
	})

	t.Run("fiber error", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/fiber-error", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
		assert.Equal(t, "HTTP_ERROR", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("unknown error", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/unknown", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp.Body).Error.Code)
	})
}

func TestErrorHandler_OversizedWebhookBody(t *testing.T) {
	// No SecurityHeaders middleware: the server rejects these bodies before
	// any middleware runs, so the handler must set the headers itself.
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(testLogger())})
	app.Post("/webhooks/facebook", func(c *fiber.Ctx) error {
		return fiber.ErrRequestEntityTooLarge
	})
	app.Post("/admin/blocks", func(c *fiber.Ctx) error {
		return fiber.ErrRequestEntityTooLarge
	})

	t.Run("webhook route gets the webhook error shape", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/webhooks/facebook", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "error", body["status"])
		assert.Equal(t, domain.ErrPayloadTooLarge.Message, body["message"])
	})

	t.Run("operator route keeps the error envelope", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/admin/blocks", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		assert.Equal(t, "HTTP_ERROR", decodeError(t, resp.Body).Error.Code)
	})
}

func TestRecover(t *testing.T) {
	app := newTestApp()
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("nil map write")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/panic", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, resp.Body).Error.Code)
}

func TestSecurityHeaders(t *testing.T) {
	app := newTestApp()
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ok", nil))
	require.NoError(t, err)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Strict-Transport-Security"))
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}
