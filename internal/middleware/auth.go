// internal/middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"biblioteca-mistica/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Context keys for user information (string keys for Fiber Locals)
const (
	UserIDContextKey = "userID"
	RoleContextKey   = "role"
)

// TokenParser validates an access token. *service.AuthService implements it.
type TokenParser interface {
	ParseToken(token string) (*service.Claims, error)
}

// Auth validates the access token from the Authorization header, or from
// ?token= for EventSource clients that cannot set headers.
//
// On success it sets userID and role in Locals. On failure it returns 401.
func Auth(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}
		if token == "" {
			log.Printf("[AUTH] ❌ REJECTED | IP=%s | Path=%s | missing token", c.IP(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized: missing access token",
			})
		}

		claims, err := parser.ParseToken(token)
		if err != nil {
			log.Printf("[AUTH] ❌ REJECTED | IP=%s | Path=%s | Token=%s | %v", c.IP(), c.Path(), maskToken(token), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized: invalid or expired token",
			})
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			log.Printf("[AUTH] ❌ Invalid user_id in token: %q, error: %v", claims.UserID, err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized: invalid token subject",
			})
		}

		c.Locals(UserIDContextKey, userID)
		c.Locals(RoleContextKey, claims.Role)
		return c.Next()
	}
}

// AdminOnly must run after Auth.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(RoleContextKey).(string)
		if !strings.EqualFold(strings.TrimSpace(role), "admin") {
			log.Printf("[ADMIN-AUTH] ❌ REJECTED (no admin) | Role=%q | Path=%s", role, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: admin role required",
			})
		}
		return c.Next()
	}
}

// GetUserIDFromContext returns the caller set by Auth.
func GetUserIDFromContext(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(UserIDContextKey)
	userID, ok := value.(uuid.UUID)
	if !ok {
		log.Printf("[AUTH] GetUserIDFromContext: FAILED to retrieve userID from context, value=%v", value)
	}
	return userID, ok
}

func bearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func maskToken(token string) string {
	if len(token) > 10 {
		return token[:10] + "..."
	}
	return "<short>"
}
