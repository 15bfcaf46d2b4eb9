package server

import (
	"errors"
	"log/slog"

	"labstock-backend/internal/history"
	"labstock-backend/internal/store"
	"labstock-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps domain errors to an HTTP status and a client message.
func statusFor(err error) (int, string) {
	var fe *fiber.Error
	var partial *store.PartialWriteError
	switch {
	case errors.As(err, &fe):
		return fe.Code, fe.Message
	case errors.As(err, &partial):
		return fiber.StatusInternalServerError, "stock was updated but the history entry could not be written"
	case errors.Is(err, workflow.ErrSessionHalted):
		return fiber.StatusServiceUnavailable, workflow.ErrSessionHalted.Error()
	case errors.Is(err, store.ErrStorageUnavailable):
		return fiber.StatusServiceUnavailable, store.ErrStorageUnavailable.Error()
	case errors.Is(err, store.ErrNotFound):
		return fiber.StatusNotFound, err.Error()
	case errors.Is(err, store.ErrDuplicateCode),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrConcurrentUpdate),
		errors.Is(err, workflow.ErrNothingToConfirm):
		return fiber.StatusConflict, err.Error()
	case errors.Is(err, store.ErrInvalidQuantity),
		errors.Is(err, history.ErrInvalidEntry):
		return fiber.StatusBadRequest, err.Error()
	}
	return fiber.StatusInternalServerError, "unexpected server error"
}

func errorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code, msg := statusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err,
			)
		}
		return c.Status(code).JSON(fiber.Map{
			"error": msg,
		})
	}
}
