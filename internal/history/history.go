// Package history appends and reads the stock history log.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"labstock-backend/internal/models"
	"labstock-backend/internal/store"

	"github.com/xuri/excelize/v2"
)

// ErrInvalidEntry is returned for entries naming both or neither of a
// product and a misc item.
var ErrInvalidEntry = errors.New("history entry needs exactly one of product id or misc item name")

type Log struct {
	store store.Store
	loc   *time.Location
	now   func() time.Time
}

func New(s store.Store, loc *time.Location) *Log {
	if loc == nil {
		loc = time.UTC
	}
	return &Log{store: s, loc: loc, now: time.Now}
}

// WithClock replaces the time source.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// Now returns the current time formatted as a history timestamp.
func (l *Log) Now() string {
	return l.now().In(l.loc).Format(models.TimestampLayout)
}

// Append assigns Sequence and Timestamp and persists the entry through s,
// which may be a transaction-bound store. A nil s uses the log's own store.
func (l *Log) Append(ctx context.Context, s store.Store, entry *models.HistoryEntry) error {
	if s == nil {
		s = l.store
	}
	if (entry.ProductID == nil) == (entry.MiscItemName == "") {
		return ErrInvalidEntry
	}
	if entry.Quantity <= 0 {
		return store.ErrInvalidQuantity
	}

	n, err := s.CountHistory(ctx)
	if err != nil {
		return err
	}
	entry.Sequence = n + 1
	entry.Timestamp = l.Now()

	if err := s.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListAll returns every entry named after the current catalog, newest first.
func (l *Log) ListAll(ctx context.Context) ([]models.HistoryView, error) {
	entries, err := l.store.ListHistory(ctx)
	if err != nil {
		return nil, err
	}
	products, err := l.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[uint]string, len(products))
	for _, p := range products {
		if p.ID != 0 {
			names[p.ID] = p.Name
		}
	}

	store.SortHistoryNewestFirst(entries)
	res := make([]models.HistoryView, 0, len(entries))
	for _, e := range entries {
		res = append(res, models.HistoryView{HistoryEntry: e, Name: displayName(e, names)})
	}
	return res, nil
}

func displayName(e models.HistoryEntry, names map[uint]string) string {
	if e.ProductID != nil {
		if name, ok := names[*e.ProductID]; ok {
			return name
		}
	}
	if e.MiscItemName != "" {
		return e.MiscItemName
	}
	return models.UnknownItemName
}

// Export writes the joined history as an xlsx workbook.
func (l *Log) Export(ctx context.Context, w io.Writer) error {
	rows, err := l.ListAll(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "history"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := []any{"timestamp", "user_name", "name", "change_type", "quantity"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Timestamp, r.UserName, r.Name, string(r.ChangeType), r.Quantity}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "A", "C", 22); err != nil {
		return err
	}
	return f.Write(w)
}
