// Command seed loads a catalog file into the configured backend. YAML and
// xlsx files are accepted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"labstock-backend/internal/catalog"
	"labstock-backend/internal/config"
	"labstock-backend/internal/logging"
	"labstock-backend/internal/storage"
)

func main() {
	file := flag.String("file", "seed.yaml", "catalog file (.yaml, .yml or .xlsx)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		ServiceName: "labstock-seed",
		Environment: cfg.Environment,
		Output:      os.Stderr,
	})

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	var items []catalog.SeedItem
	if strings.EqualFold(filepath.Ext(*file), ".xlsx") {
		items, err = catalog.ParseSeedWorkbook(f)
	} else {
		items, err = catalog.ParseSeed(f)
	}
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer backend.Close()

	res, err := catalog.New(backend).Seed(ctx, items)
	fmt.Printf("added %d, skipped %d\n", len(res.Added), len(res.Skipped))
	for _, code := range res.Skipped {
		fmt.Printf("  skipped %s (already in catalog)\n", code)
	}
	if err != nil {
		log.Fatal(err)
	}
}
