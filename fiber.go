package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SessionContextKey is where the protected-route middleware stores the
// validated session claims on the fiber context.
const SessionContextKey = "auth_session"

// GetFiberSession retrieves the session claims a Protected middleware stored
// for the current request.
func GetFiberSession(c *fiber.Ctx, key string) (*SessionClaims, error) {
	if key == "" {
		key = SessionContextKey
	}

	cookie := c.Locals(key)
	if cookie == nil {
		return nil, ErrTokenMalformed
	}

	claims, ok := cookie.(*SessionClaims)
	if claims == nil || !ok {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// Protected builds a fiber middleware that validates the bearer token and
// stores the resulting claims under SessionContextKey.
func Protected(validator TokenValidator, errorHandler func(*fiber.Ctx, error) error) fiber.Handler {
	if errorHandler == nil {
		errorHandler = defaultFiberErrHandler
	}

	return func(c *fiber.Ctx) error {
		raw, err := extractBearerToken(c)
		if err != nil {
			return errorHandler(c, err)
		}

		claims, err := validator.Validate(raw)
		if err != nil {
			return errorHandler(c, err)
		}

		c.Locals(SessionContextKey, claims)

		return c.Next()
	}
}

// RequireAtLeast builds a fiber middleware that rejects requests whose
// session does not meet the minimum role. Run it after Protected.
func RequireAtLeast(minRole MemberRole, errorHandler func(*fiber.Ctx, error) error) fiber.Handler {
	if errorHandler == nil {
		errorHandler = defaultFiberErrHandler
	}

	return func(c *fiber.Ctx) error {
		claims, err := GetFiberSession(c, SessionContextKey)
		if err != nil {
			return errorHandler(c, err)
		}

		if !claims.IsAtLeast(minRole) {
			return errorHandler(c, ErrForbidden)
		}

		return c.Next()
	}
}

func extractBearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", ErrTokenMalformed
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", ErrTokenMalformed
	}

	return parts[1], nil
}

func defaultFiberErrHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusUnauthorized
	if RejectionTextCode(err) == TextCodeForbidden {
		status = fiber.StatusForbidden
	}

	return c.Status(status).JSON(fiber.Map{
		"error": map[string]any{
			"code":    RejectionTextCode(err),
			"message": err.Error(),
		},
	})
}
