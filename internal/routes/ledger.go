package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/intime-labs/intime/internal/access"
	"github.com/intime-labs/intime/internal/ledger"
)

// RegisterLedgerReadRoutes wires the unauthenticated ledger views.
func RegisterLedgerReadRoutes(r fiber.Router, h *ledger.Handler) {
	group := r.Group("/ledger")
	group.Get("/supply", h.Supply)
	group.Get("/accounts/:id", h.Account)
}

// RegisterLedgerRoutes wires ledger mutations; r must be behind JWTAuth.
func RegisterLedgerRoutes(r fiber.Router, h *ledger.Handler) {
	group := r.Group("/ledger")
	group.Post("/mint", h.Mint)
	group.Post("/burn", h.Burn)
	group.Post("/burn-from", h.BurnFrom)
	group.Post("/transfer", h.Transfer)
	group.Post("/approve", h.Approve)
	group.Post("/transfer-from", h.TransferFrom)
}

// RegisterRoleRoutes wires role administration; r must be behind JWTAuth.
func RegisterRoleRoutes(r fiber.Router, h *access.Handler) {
	group := r.Group("/roles")
	group.Post("/grant", h.Grant)
	group.Post("/revoke", h.Revoke)
	group.Get("/:role/:account", h.Check)
}
