package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/intime-labs/intime/internal/auth"
)

// Locals keys populated by JWTAuth.
const (
	LocalUserID  = "user_id"
	LocalAccount = "account_id"
)

// JWTAuth returns a middleware that validates access tokens and binds the
// caller's ledger account to the request.
func JWTAuth(tokens *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := tokens.VerifyAccess(c.UserContext(), tokenStr)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}

		c.Locals(LocalUserID, claims.UserID)
		c.Locals(LocalAccount, claims.Account)
		c.Locals("token_version", claims.Version)
		return c.Next()
	}
}
