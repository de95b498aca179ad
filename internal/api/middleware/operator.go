package middleware

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/admin"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
)

const (
	// LocalOperator is the key to retrieve the authenticated operator from context
	LocalOperator = "operator"
	// LocalOperatorRole is the key to retrieve the operator role from context
	LocalOperatorRole = "operator_role"
)

// TokenValidator parses operator tokens.
type TokenValidator interface {
	ValidateToken(token string) (*admin.OperatorClaims, error)
}

// OperatorAuthDependencies contains dependencies for operator authentication
type OperatorAuthDependencies struct {
	Tokens TokenValidator
	Logger *slog.Logger
}

// OperatorAuth requires a Bearer JWT with the operator role.
func OperatorAuth(deps OperatorAuthDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c)
		if token == "" {
			deps.Logger.Debug("missing authorization header for operator api")
			return domain.ErrUnauthorized
		}

		claims, err := deps.Tokens.ValidateToken(token)
		if err != nil {
			deps.Logger.Warn("invalid operator token", "error", err, "ip", c.IP())
			return domain.ErrUnauthorized
		}

		if claims.Role != admin.RoleOperator {
			deps.Logger.Warn("insufficient privileges", "role", claims.Role, "required", admin.RoleOperator)
			return domain.ErrForbidden
		}

		c.Locals(LocalOperator, claims.Subject)
		c.Locals(LocalOperatorRole, claims.Role)

		return c.Next()
	}
}

// GetOperator returns the subject of the authenticated operator.
func GetOperator(c *fiber.Ctx) (string, error) {
	subject, ok := c.Locals(LocalOperator).(string)
	if !ok {
		return "", domain.ErrUnauthorized
	}
	return subject, nil
}

func extractBearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
