package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/gema-classroom/internal/utils"
	"github.com/noah-isme/gema-classroom/pkg/learnapi"
)

const sessionLocalsKey = "session"

// Session builds the learnapi.Session for the request from the bearer token.
// Requests without a token continue as guests. The token is forwarded to the
// backend untouched; only its subject is read here, to scope views to their
// owner, so the signature is left for the backend to verify.
func Session() fiber.Handler {
	parser := jwt.NewParser()

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get("Authorization"))
		if authorization == "" {
			c.Locals(sessionLocalsKey, learnapi.Session{})
			return c.Next()
		}

		const bearer = "Bearer "
		if !strings.HasPrefix(strings.ToLower(authorization), strings.ToLower(bearer)) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}

		tokenString := strings.TrimSpace(authorization[len(bearer):])
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims := jwt.MapClaims{}
		if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		subject := extractSubjectFromClaims(claims)
		if subject == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token claims")
		}

		c.Locals(sessionLocalsKey, learnapi.Session{Token: tokenString, Subject: subject})
		c.Locals("user_id", subject)
		return c.Next()
	}
}

// SessionFromContext returns the session attached by Session, or a guest session.
func SessionFromContext(c *fiber.Ctx) learnapi.Session {
	if c == nil {
		return learnapi.Session{}
	}
	if session, ok := c.Locals(sessionLocalsKey).(learnapi.Session); ok {
		return session
	}
	return learnapi.Session{}
}

func extractSubjectFromClaims(claims jwt.MapClaims) string {
	keys := []string{"sub", "user_id", "id"}
	for _, key := range keys {
		if value, ok := claims[key]; ok {
			if normalized, err := normalizeSubject(value); err == nil && normalized != "" {
				return normalized
			}
		}
	}
	return ""
}

func normalizeSubject(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case float64:
		if v < 0 {
			return "", fmt.Errorf("invalid subject")
		}
		return strconv.FormatUint(uint64(v), 10), nil
	case int:
		if v < 0 {
			return "", fmt.Errorf("invalid subject")
		}
		return strconv.Itoa(v), nil
	default:
		return "", fmt.Errorf("unsupported subject type")
	}
}
