package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"labstock-backend/internal/store"

	"gopkg.in/yaml.v3"
)

type SeedItem struct {
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
	Unit  string `yaml:"unit"`
	Stock int    `yaml:"stock"`
}

type SeedFile struct {
	Products []SeedItem `yaml:"products"`
}

type SeedResult struct {
	Added   []string
	Skipped []string
}

// ParseSeed reads a YAML catalog:
//
//	products:
//	  - {code: swab, name: Cotton Swabs, unit: box, stock: 3}
func ParseSeed(r io.Reader) ([]SeedItem, error) {
	var f SeedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return f.Products, nil
}

// Seed adds items in order. Codes already in the catalog are skipped; any
// other error stops seeding.
func (c *Catalog) Seed(ctx context.Context, items []SeedItem) (SeedResult, error) {
	var res SeedResult
	for _, it := range items {
		_, err := c.Add(ctx, it.Code, it.Name, it.Unit, it.Stock)
		switch {
		case err == nil:
			res.Added = append(res.Added, it.Code)
		case errors.Is(err, store.ErrDuplicateCode):
			res.Skipped = append(res.Skipped, it.Code)
		default:
			return res, fmt.Errorf("seed %q: %w", it.Code, err)
		}
	}
	return res, nil
}
