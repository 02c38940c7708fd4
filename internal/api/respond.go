// Package api defines the JSON envelope every endpoint responds with and the
// application-wide error handler that renders failures into it.
package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Success writes a success envelope with the given status, message and data.
func Success(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope. Data is optional and carries hints such as
// a retry-after value.
func Fail(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(envelope{Success: false, Message: message, Data: data})
}

// ErrorHandler renders uncaught errors into the failure envelope. fiber.Error
// values keep their status and message; anything else becomes a generic 500
// whose detail is exposed only in development.
func ErrorHandler(dev bool, logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return Fail(c, fe.Code, fe.Message, nil)
		}

		if logger != nil {
			logger.Error("unhandled request error",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("error", err),
			)
		}
		resp := envelope{Success: false, Message: "Server Error"}
		if dev {
			resp.Error = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(resp)
	}
}
