// Package catalog resolves product codes and manages catalog entries.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"labstock-backend/internal/models"
	"labstock-backend/internal/store"
)

// ErrInvalidProduct is returned when code, name or unit is blank.
var ErrInvalidProduct = errors.New("code, name and unit are required")

type Catalog struct {
	store store.Store
}

func New(s store.Store) *Catalog {
	return &Catalog{store: s}
}

// NormalizeCode trims the whitespace scanners and hand-typed links add.
func NormalizeCode(code string) string {
	return strings.TrimSpace(code)
}

// Resolve looks up a product by code. Absent or blank codes return
// store.ErrNotFound.
func (c *Catalog) Resolve(ctx context.Context, code string) (*models.Product, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, store.ErrNotFound
	}
	return c.store.FindProductByCode(ctx, code)
}

func (c *Catalog) Get(ctx context.Context, id uint) (*models.Product, error) {
	return c.store.FindProductByID(ctx, id)
}

// ListAll returns every product that has an id. Spreadsheet rows typed in
// by hand can lack one.
func (c *Catalog) ListAll(ctx context.Context) ([]models.Product, error) {
	products, err := c.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.ID == 0 {
			continue
		}
		res = append(res, p)
	}
	return res, nil
}

func (c *Catalog) Add(ctx context.Context, code, name, unit string, initialStock int) (*models.Product, error) {
	code = NormalizeCode(code)
	name = strings.TrimSpace(name)
	unit = strings.TrimSpace(unit)
	if code == "" || name == "" || unit == "" {
		return nil, ErrInvalidProduct
	}
	if initialStock < 0 {
		return nil, store.ErrInvalidQuantity
	}
	return c.store.AddProduct(ctx, code, name, unit, initialStock)
}

// Update changes display metadata. The code is immutable.
func (c *Catalog) Update(ctx context.Context, id uint, name, unit string) (*models.Product, error) {
	name = strings.TrimSpace(name)
	unit = strings.TrimSpace(unit)
	if name == "" || unit == "" {
		return nil, ErrInvalidProduct
	}
	return c.store.UpdateProduct(ctx, id, name, unit)
}

// DeepLink builds the URL printed on a product's QR label.
func DeepLink(baseURL, code string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set(CodeParam, NormalizeCode(code))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CodeParam is the query parameter carrying a product code in deep links.
const CodeParam = "product_code"
