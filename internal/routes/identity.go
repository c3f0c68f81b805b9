package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/intime-labs/intime/internal/identity"
	"github.com/intime-labs/intime/internal/middleware"
)

// RegisterIdentityRoutes wires public onboarding.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler) {
	r.Post("/identity/register", h.Register)
}

// RegisterProfileRoute exposes the authenticated holder's profile.
func RegisterProfileRoute(r fiber.Router, repo identity.Repository) {
	r.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals(middleware.LocalUserID).(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := repo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":       user.ID,
			"account":       user.Account,
			"device_id":     user.DeviceID,
			"token_version": user.TokenVersion,
			"created_at":    user.CreatedAt,
			"last_login":    user.LastLogin,
		})
	})
}
