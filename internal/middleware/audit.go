package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Audit emits a structured log for each completed request. The request ID is
// carried on the logger context so downstream attributes group under it, and
// the authenticated account is recorded when a handler resolved one.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		log := logger
		if requestID := RequestIDFrom(c); requestID != "" {
			log = logger.With(slog.String("request_id", requestID))
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		}
		if userID, ok := c.Locals("user_id").(string); ok && userID != "" {
			attrs = append(attrs, slog.String("user_id", userID))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			log.Error("request completed", attrs...)
			return err
		}

		log.Info("request completed", attrs...)
		return nil
	}
}
