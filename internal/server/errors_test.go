package server

import (
	"errors"
	"fmt"
	"testing"

	"labstock-backend/internal/store"
	"labstock-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	unavailable := store.Unavailable("read sheet", errors.New("quota"))
	tests := []struct {
		err  error
		want int
	}{
		{fiber.NewError(fiber.StatusTeapot, "tea"), fiber.StatusTeapot},
		{fmt.Errorf("find: %w", store.ErrNotFound), fiber.StatusNotFound},
		{workflow.ErrSessionNotFound, fiber.StatusNotFound},
		{store.ErrDuplicateCode, fiber.StatusConflict},
		{store.ErrInsufficientStock, fiber.StatusConflict},
		{store.ErrConcurrentUpdate, fiber.StatusConflict},
		{workflow.ErrNothingToConfirm, fiber.StatusConflict},
		{store.ErrInvalidQuantity, fiber.StatusBadRequest},
		{unavailable, fiber.StatusServiceUnavailable},
		{workflow.ErrSessionHalted, fiber.StatusServiceUnavailable},
		{&store.PartialWriteError{ProductID: 1, Delta: -1, Err: unavailable}, fiber.StatusInternalServerError},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, msg := statusFor(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
		assert.NotEmpty(t, msg)
	}
}

func TestStatusForHidesStorageDetails(t *testing.T) {
	_, msg := statusFor(store.Unavailable("open", errors.New("password authentication failed")))
	assert.Equal(t, "storage unavailable", msg)
}
