// Package ledger applies stock mutations and pairs each one with a history
// entry.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"labstock-backend/internal/history"
	"labstock-backend/internal/models"
	"labstock-backend/internal/store"
)

type Ledger struct {
	store   store.Store
	history *history.Log
	log     *slog.Logger
}

func New(s store.Store, h *history.Log, log *slog.Logger) *Ledger {
	return &Ledger{store: s, history: h, log: log}
}

// Result is the product after a mutation plus the history row written for
// it. Entry is nil for no-op calls.
type Result struct {
	Product *models.Product      `json:"product"`
	Entry   *models.HistoryEntry `json:"entry,omitempty"`
}

// Consume takes one unit of a product. The write carries the version the
// stock check read, so a row changed in between is refused rather than
// overwritten.
func (l *Ledger) Consume(ctx context.Context, productID uint, userName string) (Result, error) {
	return l.apply(ctx, productID, func(tx store.Store, p *models.Product) (*models.Product, *models.HistoryEntry, error) {
		if p.CurrentStock <= 0 {
			return nil, nil, store.ErrInsufficientStock
		}
		updated, err := tx.AdjustStock(ctx, p.ID, p.Version, -1)
		if err != nil {
			return nil, nil, err
		}
		return updated, l.entry(p.ID, userName, models.ChangeUse, 1), nil
	})
}

// ManualAdjust adds delta to the stock. Positive deltas are receipts,
// negative ones adjustments; zero does nothing.
func (l *Ledger) ManualAdjust(ctx context.Context, productID uint, delta int, userName string) (Result, error) {
	if delta == 0 {
		p, err := l.store.FindProductByID(ctx, productID)
		return Result{Product: p}, err
	}
	return l.apply(ctx, productID, func(tx store.Store, p *models.Product) (*models.Product, *models.HistoryEntry, error) {
		updated, err := tx.AdjustStock(ctx, p.ID, p.Version, delta)
		if err != nil {
			return nil, nil, err
		}
		return updated, l.entry(p.ID, userName, changeFor(delta), abs(delta)), nil
	})
}

// SetStock overwrites the stock after a stocktake and records the
// difference.
func (l *Ledger) SetStock(ctx context.Context, productID uint, value int, userName string) (Result, error) {
	if value < 0 {
		return Result{}, store.ErrInvalidQuantity
	}
	return l.apply(ctx, productID, func(tx store.Store, p *models.Product) (*models.Product, *models.HistoryEntry, error) {
		delta := value - p.CurrentStock
		if delta == 0 {
			return p, nil, nil
		}
		updated, err := tx.SetStock(ctx, p.ID, p.Version, value)
		if err != nil {
			return nil, nil, err
		}
		return updated, l.entry(p.ID, userName, changeFor(delta), abs(delta)), nil
	})
}

// RecordMiscUse logs use of an item that is not tracked in the catalog.
func (l *Ledger) RecordMiscUse(ctx context.Context, itemName string, quantity int, userName string) (*models.HistoryEntry, error) {
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return nil, history.ErrInvalidEntry
	}
	if quantity <= 0 {
		return nil, store.ErrInvalidQuantity
	}
	e := &models.HistoryEntry{
		MiscItemName: itemName,
		UserName:     userName,
		ChangeType:   models.ChangeMiscUse,
		Quantity:     quantity,
	}
	if err := l.history.Append(ctx, l.store, e); err != nil {
		return nil, err
	}
	return e, nil
}

type mutation func(tx store.Store, current *models.Product) (*models.Product, *models.HistoryEntry, error)

// apply runs one read, mutate, append sequence in a unit of work. When the
// backend cannot roll back and the append fails after the stock moved, the
// result is a PartialWriteError.
func (l *Ledger) apply(ctx context.Context, productID uint, fn mutation) (Result, error) {
	var (
		res     Result
		applied bool
		delta   int
	)
	err := l.store.Atomically(ctx, func(tx store.Store) error {
		p, err := tx.FindProductByID(ctx, productID)
		if err != nil {
			return err
		}
		updated, entry, err := fn(tx, p)
		if err != nil {
			return err
		}
		res.Product = updated
		if entry == nil {
			return nil
		}
		applied = true
		delta = updated.CurrentStock - p.CurrentStock
		if err := l.history.Append(ctx, tx, entry); err != nil {
			return err
		}
		res.Entry = entry
		return nil
	})
	if err == nil {
		return res, nil
	}

	if applied && !l.store.Transactional() {
		l.log.Warn("stock changed without history entry",
			"product_id", productID,
			"delta", delta,
			"error", err,
		)
		return res, &store.PartialWriteError{ProductID: productID, Delta: delta, Err: err}
	}
	if errors.Is(err, store.ErrStorageUnavailable) {
		l.log.Error("ledger storage failure", "product_id", productID, "error", err)
	}
	return Result{}, err
}

func (l *Ledger) entry(productID uint, userName string, ct models.ChangeType, qty int) *models.HistoryEntry {
	id := productID
	return &models.HistoryEntry{
		ProductID:  &id,
		UserName:   userName,
		ChangeType: ct,
		Quantity:   qty,
	}
}

func changeFor(delta int) models.ChangeType {
	if delta > 0 {
		return models.ChangeReceive
	}
	return models.ChangeAdjust
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
