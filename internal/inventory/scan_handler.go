package inventory

import (
	"labstock-backend/internal/auth"
	"labstock-backend/internal/workflow"

	"github.com/gofiber/fiber/v2"
)

// ScanHandlers serves the scan session endpoints.
type ScanHandlers struct {
	Workflow *workflow.Workflow
	Sessions *workflow.Sessions
}

func (h ScanHandlers) session(c *fiber.Ctx) (*workflow.Session, error) {
	return h.Sessions.Get(c.Params("id"), auth.CurrentUser(c).UserID)
}

// POST /api/scan-sessions
func (h ScanHandlers) Create() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := h.Sessions.Create(auth.CurrentUser(c).UserID)
		return c.Status(fiber.StatusCreated).JSON(s.Snapshot())
	}
}

// GET /api/scan-sessions/:id
func (h ScanHandlers) Get() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		return c.JSON(s.Snapshot())
	}
}

// POST /api/scan-sessions/:id/code
func (h ScanHandlers) Offer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		var in workflow.Input
		if err := c.BodyParser(&in); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		snap, err := h.Workflow.Offer(c.UserContext(), s, in)
		if err != nil {
			return err
		}
		return c.JSON(snap)
	}
}

// POST /api/scan-sessions/:id/confirm
func (h ScanHandlers) Confirm() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		snap, err := h.Workflow.Confirm(c.UserContext(), s, auth.CurrentUser(c).Name)
		if err != nil {
			return err
		}
		return c.JSON(snap)
	}
}

// POST /api/scan-sessions/:id/reset
func (h ScanHandlers) Reset() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := h.session(c)
		if err != nil {
			return err
		}
		return c.JSON(h.Workflow.Reset(s))
	}
}
