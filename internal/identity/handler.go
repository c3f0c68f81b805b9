package identity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes identity endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type registerRequest struct {
	Account  string `json:"account"`
	PIN      string `json:"pin"`
	DeviceID string `json:"device_id"`
}

type registerResponse struct {
	UserID   string `json:"user_id"`
	Account  string `json:"account"`
	DeviceID string `json:"device_id"`
}

// Register handles account holder onboarding.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.Register(c.UserContext(), Credentials{Account: req.Account, PIN: req.PIN, DeviceID: req.DeviceID})
	if errors.Is(err, ErrUserExists) {
		return fiber.NewError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if h.logger != nil {
		h.logger.Info("identity.register completed",
			slog.String("user_id", user.ID),
			slog.String("account", user.Account),
		)
	}
	return c.Status(http.StatusCreated).JSON(registerResponse{UserID: user.ID, Account: user.Account, DeviceID: user.DeviceID})
}
