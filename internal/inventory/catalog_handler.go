package inventory

import (
	"errors"
	"strings"

	"labstock-backend/internal/catalog"
	"labstock-backend/internal/config"

	"github.com/gofiber/fiber/v2"
)

type CreateProductRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	InitialStock int    `json:"initial_stock"`
}

type UpdateProductRequest struct {
	Name *string `json:"name"`
	Unit *string `json:"unit"`
}

// GET /api/products
func ListProductsHandler(cat *catalog.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		products, err := cat.ListAll(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(products)
	}
}

// GET /api/products/:code
func GetProductHandler(cat *catalog.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := cat.Resolve(c.UserContext(), c.Params("code"))
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// POST /api/admin/products
func CreateProductHandler(cat *catalog.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		p, err := cat.Add(c.UserContext(), body.Code, body.Name, body.Unit, body.InitialStock)
		if errors.Is(err, catalog.ErrInvalidProduct) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/admin/products/:id
func UpdateProductHandler(cat *catalog.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		p, err := cat.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		name, unit := p.Name, p.Unit
		if body.Name != nil {
			name = *body.Name
		}
		if body.Unit != nil {
			unit = *body.Unit
		}

		p, err = cat.Update(c.UserContext(), id, name, unit)
		if errors.Is(err, catalog.ErrInvalidProduct) {
			return fiber.NewError(fiber.StatusBadRequest, "name and unit cannot be empty")
		}
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// GET /api/admin/products/:id/label-link
func LabelLinkHandler(cfg *config.Config, cat *catalog.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := productID(c)
		if err != nil {
			return err
		}
		p, err := cat.Get(c.UserContext(), id)
		if err != nil {
			return err
		}
		link, err := catalog.DeepLink(cfg.PublicBaseURL, p.Code)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"product_id": p.ID,
			"code":       p.Code,
			"link":       link,
		})
	}
}

// POST /api/admin/products/import
// Multipart upload of an xlsx catalog. Existing codes are skipped.
func ImportProductsHandler(cat *catalog.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file is required")
		}
		if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".xlsx") {
			return fiber.NewError(fiber.StatusBadRequest, "only .xlsx files can be imported")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not open upload")
		}
		defer file.Close()

		items, err := catalog.ParseSeedWorkbook(file)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := cat.Seed(c.UserContext(), items)
		if errors.Is(err, catalog.ErrInvalidProduct) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"added":   nonNil(res.Added),
			"skipped": nonNil(res.Skipped),
		})
	}
}

func productID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid product id")
	}
	return uint(id), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

