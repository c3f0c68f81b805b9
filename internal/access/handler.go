package access

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes role management endpoints.
type Handler struct {
	registry *Registry
}

// NewHandler constructs a role management handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

type roleRequest struct {
	Role    string `json:"role"`
	Account string `json:"account"`
}

// Grant assigns a role on behalf of the authenticated administrator.
func (h *Handler) Grant(c *fiber.Ctx) error {
	return h.change(c, h.registry.Grant)
}

// Revoke removes a role on behalf of the authenticated administrator.
func (h *Handler) Revoke(c *fiber.Ctx) error {
	return h.change(c, h.registry.Revoke)
}

// Check reports whether an account holds a role.
func (h *Handler) Check(c *fiber.Ctx) error {
	role, err := ParseRole(c.Params("role"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account := c.Params("account")
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"role":     role,
		"account":  account,
		"has_role": h.registry.HasRole(role, account),
	})
}

type changeFunc func(ctx context.Context, caller string, role Role, account string) error

func (h *Handler) change(c *fiber.Ctx, apply changeFunc) error {
	var req roleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	role, err := ParseRole(req.Role)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	caller, _ := c.Locals("account_id").(string)

	if err := apply(c.UserContext(), caller, role, req.Account); err != nil {
		switch {
		case errors.Is(err, ErrUnauthorized):
			return fiber.NewError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrInvalidAccount):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"role":     role,
		"account":  req.Account,
		"has_role": h.registry.HasRole(role, req.Account),
	})
}
