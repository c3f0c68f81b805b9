package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	// KindMint indicates value minted into an account.
	KindMint = "mint"
	// KindBurn indicates value destroyed from an account.
	KindBurn = "burn"
	// KindTransfer indicates value moved between two accounts.
	KindTransfer = "transfer"
	// KindApproval indicates an owner changed a spender's allowance.
	KindApproval = "approval"
)

// Event describes a committed ledger change. From is empty for mints and To
// is empty for burns.
type Event struct {
	Kind   string    `json:"kind"`
	From   string    `json:"from,omitempty"`
	To     string    `json:"to,omitempty"`
	Amount int64     `json:"amount"`
	At     time.Time `json:"at"`
}

// Notifier delivers ledger events to downstream systems.
type Notifier interface {
	Send(ctx context.Context, event Event) error
}

// LoggerNotifier writes events to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the event to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, event Event) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("ledger event",
		"kind", event.Kind,
		"from", event.From,
		"to", event.To,
		"amount", event.Amount,
		"at", event.At,
	)
	return nil
}

// Multi fans an event out to several notifiers and returns the first error.
type Multi []Notifier

// Send delivers the event to every notifier even when one fails.
func (m Multi) Send(ctx context.Context, event Event) error {
	var first error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
