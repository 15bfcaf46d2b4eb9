// Package storage opens the backend selected by STORAGE_BACKEND.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"labstock-backend/internal/config"
	"labstock-backend/internal/database"
	"labstock-backend/internal/store"
	"labstock-backend/internal/store/gormstore"
	"labstock-backend/internal/store/memstore"
	"labstock-backend/internal/store/sheetstore"
)

func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := database.Open(cfg.DatabaseDSN, log)
		if err != nil {
			return nil, store.Unavailable("open postgres", err)
		}
		return gormstore.New(db), nil

	case config.BackendWorkbook:
		wb, err := sheetstore.OpenWorkbook(cfg.WorkbookPath)
		if err != nil {
			return nil, store.Unavailable("open workbook", err)
		}
		s, err := sheetstore.New(ctx, wb, cfg.Location())
		if err != nil {
			_ = wb.Close()
			return nil, err
		}
		log.Info("workbook backend ready", "path", cfg.WorkbookPath)
		return s, nil

	case config.BackendGSheets:
		creds, err := sheetstore.CredentialsJSON(cfg.GoogleCredentialsJSON, cfg.GoogleCredentialsFile)
		if err != nil {
			return nil, err
		}
		gs, err := sheetstore.OpenGoogleSheets(ctx, cfg.SpreadsheetID, creds)
		if err != nil {
			return nil, store.Unavailable("open google sheets", err)
		}
		s, err := sheetstore.New(ctx, gs, cfg.Location())
		if err != nil {
			return nil, err
		}
		log.Info("google sheets backend ready", "spreadsheet_id", cfg.SpreadsheetID)
		return s, nil

	case config.BackendMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
