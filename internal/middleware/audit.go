package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits one structured log line per request, tagged with the
// authenticated ledger account when there is one.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			// the error handler has not written the response yet
			status = fe.Code
		}
		duration := time.Since(start)
		requestID, _ := c.Locals(requestIDHeader).(string)

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", duration),
		}
		if requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if account, _ := c.Locals(LocalAccount).(string); account != "" {
			attrs = append(attrs, slog.String("account", account))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Warn("request failed", attrs...)
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}
