package ledger

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the ledger over HTTP. The acting account is read from the
// "account_id" local set by the JWT middleware.
type Handler struct {
	engine *Engine
}

// NewHandler constructs a ledger HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type amountRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Spender string `json:"spender"`
	Amount  int64  `json:"amount"`
}

type accountView struct {
	Account   string     `json:"account"`
	Balance   int64      `json:"balance"`
	Time      int64      `json:"time"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Allowance *int64     `json:"allowance,omitempty"`
}

// Mint credits req.To. Requires the minter role.
func (h *Handler) Mint(c *fiber.Ctx) error {
	return h.mutate(c, func(caller string, req amountRequest) (string, error) {
		return req.To, h.engine.Mint(c.UserContext(), caller, req.To, req.Amount)
	})
}

// Burn destroys value from the caller's account.
func (h *Handler) Burn(c *fiber.Ctx) error {
	return h.mutate(c, func(caller string, req amountRequest) (string, error) {
		return caller, h.engine.Burn(c.UserContext(), caller, req.Amount)
	})
}

// BurnFrom destroys value from req.From. Requires the burner role.
func (h *Handler) BurnFrom(c *fiber.Ctx) error {
	return h.mutate(c, func(caller string, req amountRequest) (string, error) {
		return req.From, h.engine.BurnFrom(c.UserContext(), caller, req.From, req.Amount)
	})
}

// Transfer moves value from the caller to req.To.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	return h.mutate(c, func(caller string, req amountRequest) (string, error) {
		return caller, h.engine.Transfer(c.UserContext(), caller, req.To, req.Amount)
	})
}

// Approve sets the caller's allowance for req.Spender.
func (h *Handler) Approve(c *fiber.Ctx) error {
	return h.mutate(c, func(caller string, req amountRequest) (string, error) {
		return caller, h.engine.Approve(c.UserContext(), caller, req.Spender, req.Amount)
	})
}

// TransferFrom spends the caller's allowance on req.From's account.
func (h *Handler) TransferFrom(c *fiber.Ctx) error {
	return h.mutate(c, func(caller string, req amountRequest) (string, error) {
		return req.From, h.engine.TransferFrom(c.UserContext(), caller, req.From, req.To, req.Amount)
	})
}

// Supply reports the current total supply as a decimal string.
func (h *Handler) Supply(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"total_supply": h.engine.TotalSupply().Dec(),
		"decay_rate":   h.engine.Rate(),
		"mint_policy":  h.engine.Policy(),
	})
}

// Account reports an account's balance, raw time value and expiry. Passing
// ?spender= also returns the allowance granted to that spender.
func (h *Handler) Account(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(h.view(c.Params("id"), c.Query("spender")))
}

func (h *Handler) view(account, spender string) accountView {
	v := accountView{
		Account: account,
		Balance: h.engine.BalanceOf(account),
		Time:    h.engine.TimeOf(account),
	}
	if at, ok := h.engine.ExpiresAt(account); ok {
		v.ExpiresAt = &at
	}
	if spender != "" {
		allowance := h.engine.Allowance(account, spender)
		v.Allowance = &allowance
	}
	return v
}

type mutateFunc func(caller string, req amountRequest) (string, error)

func (h *Handler) mutate(c *fiber.Ctx, apply mutateFunc) error {
	caller, _ := c.Locals("account_id").(string)
	if caller == "" {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	account, err := apply(caller, req)
	if err != nil {
		return fiber.NewError(StatusFor(err), err.Error())
	}
	return c.Status(http.StatusOK).JSON(h.view(account, ""))
}

// StatusFor maps ledger errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrRecipientExpired), errors.Is(err, ErrAccountExpired):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidAccount),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInsufficientAllowance),
		errors.Is(err, ErrAmountOverflow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
