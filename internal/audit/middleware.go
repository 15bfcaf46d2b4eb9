// Package audit records who changed what through the admin API.
package audit

import (
	"log/slog"
	"time"

	"labstock-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// Middleware logs every mutating request with the caller and the outcome.
// Reads are not logged.
func Middleware(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead || c.Method() == fiber.MethodOptions {
			return c.Next()
		}

		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}

		me := auth.CurrentUser(c)
		attrs := []any{
			"user_id", me.UserID,
			"user_name", me.Name,
			"role", me.Role,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}
		log.Info("admin action", attrs...)
		return err
	}
}
