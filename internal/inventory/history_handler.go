package inventory

import (
	"bytes"
	"fmt"
	"time"

	"labstock-backend/internal/history"

	"github.com/gofiber/fiber/v2"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GET /api/admin/history
func ListHistoryHandler(h *history.Log) fiber.Handler {
	return func(c *fiber.Ctx) error {
		views, err := h.ListAll(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(views)
	}
}

// GET /api/admin/history/export
func ExportHistoryHandler(h *history.Log) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var buf bytes.Buffer
		if err := h.Export(c.UserContext(), &buf); err != nil {
			return err
		}
		name := fmt.Sprintf("history-%s.xlsx", time.Now().Format("20060102"))
		c.Attachment(name)
		c.Set(fiber.HeaderContentType, xlsxContentType)
		return c.Send(buf.Bytes())
	}
}
