package inventory

import (
	"labstock-backend/internal/auth"
	"labstock-backend/internal/ledger"

	"github.com/gofiber/fiber/v2"
)

type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

type SetStockRequest struct {
	Value *int `json:"value"`
}

type MiscUseRequest struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// POST /api/admin/products/:id/adjust
func AdjustStockHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		var body AdjustStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		res, err := l.ManualAdjust(c.UserContext(), id, body.Delta, auth.CurrentUser(c).Name)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// PUT /api/admin/products/:id/stock
func SetStockHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		var body SetStockRequest
		if err := c.BodyParser(&body); err != nil || body.Value == nil {
			return fiber.NewError(fiber.StatusBadRequest, "value is required")
		}

		res, err := l.SetStock(c.UserContext(), id, *body.Value, auth.CurrentUser(c).Name)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// POST /api/misc-uses
func MiscUseHandler(l *ledger.Ledger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body MiscUseRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		entry, err := l.RecordMiscUse(c.UserContext(), body.ItemName, body.Quantity, auth.CurrentUser(c).Name)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	}
}
