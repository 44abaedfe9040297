package middleware

import (
	"log"
	"strings"

	"bizdesk/internal/apperror"
	"bizdesk/internal/models"
	"bizdesk/internal/services"

	"github.com/gofiber/fiber/v2"
)

// userKey is the c.Locals key holding the authenticated *models.User.
const userKey = "user"

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. ok is false when the header is absent or malformed.
func BearerToken(c *fiber.Ctx) (token string, ok bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", false
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// AuthRequired is a Fiber middleware that rejects requests without a valid
// bearer token for an existing user. The resolved user is stored in the
// request context; see CurrentUser.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := BearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "No token provided",
			})
		}

		user, err := authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			kind := apperror.KindOf(err)
			if kind != apperror.KindAuth {
				return c.Status(apperror.Status(kind)).JSON(fiber.Map{
					"message": "Authentication failed",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
			})
		}

		c.Locals(userKey, user)
		return c.Next()
	}
}

// CurrentUser returns the user stored by AuthRequired, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}
