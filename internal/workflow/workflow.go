// Package workflow drives a scan session from a scanned or linked code to a
// confirmed consumption.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"labstock-backend/internal/catalog"
	"labstock-backend/internal/ledger"
	"labstock-backend/internal/models"
	"labstock-backend/internal/store"
)

type State string

const (
	StateIdle        State = "IDLE"
	StateCodePending State = "CODE_PENDING"
	StateResolved    State = "RESOLVED"
	StateConsumed    State = "CONSUMED"
	StateNotFound    State = "NOT_FOUND"
	StateOutOfStock  State = "OUT_OF_STOCK"
	StateHalted      State = "HALTED"
)

var (
	// ErrSessionHalted is returned after a storage failure until Reset.
	ErrSessionHalted = errors.New("scan session halted after storage failure")
	// ErrNothingToConfirm is returned by Confirm outside the RESOLVED state.
	ErrNothingToConfirm = errors.New("no resolved product to confirm")
)

// Input is one interaction's code sources. Scanned wins over Link.
type Input struct {
	Scanned string `json:"scanned"`
	Link    string `json:"link"`
}

type Session struct {
	ID      string
	OwnerID uint

	mu               sync.Mutex
	state            State
	scanned          string
	link             string
	code             string
	product          *models.Product
	lastConsumedCode string
	lastEntry        *models.HistoryEntry
}

// Snapshot is a copy of a session's visible state.
type Snapshot struct {
	ID               string               `json:"id"`
	State            State                `json:"state"`
	Code             string               `json:"code,omitempty"`
	Product          *models.Product      `json:"product,omitempty"`
	LastConsumedCode string               `json:"last_consumed_code,omitempty"`
	LastEntry        *models.HistoryEntry `json:"last_entry,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		ID:               s.ID,
		State:            s.state,
		Code:             s.code,
		Product:          s.product,
		LastConsumedCode: s.lastConsumedCode,
		LastEntry:        s.lastEntry,
	}
}

func (s *Session) clearSources() {
	s.scanned = ""
	s.link = ""
	s.code = ""
}

type Workflow struct {
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	log     *slog.Logger
}

func New(c *catalog.Catalog, l *ledger.Ledger, log *slog.Logger) *Workflow {
	return &Workflow{catalog: c, ledger: l, log: log}
}

// Offer feeds new input to the session. A code equal to the last consumed
// one is ignored so a reloaded link does not resolve again.
func (w *Workflow) Offer(ctx context.Context, s *Session, in Input) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateHalted {
		return s.snapshot(), ErrSessionHalted
	}

	code := CodeFromPayload(in.Scanned)
	if code == "" {
		code = CodeFromPayload(in.Link)
	}
	if code == "" {
		s.clearSources()
		s.product = nil
		s.state = StateIdle
		return s.snapshot(), nil
	}
	if code == s.lastConsumedCode {
		return s.snapshot(), nil
	}

	s.lastConsumedCode = ""
	s.scanned, s.link, s.code = in.Scanned, in.Link, code
	s.product = nil
	s.state = StateCodePending

	p, err := w.catalog.Resolve(ctx, code)
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.state = StateNotFound
		return s.snapshot(), nil
	case err != nil:
		w.fail(s, err)
		return s.snapshot(), err
	}

	s.product = p
	if p.CurrentStock <= 0 {
		s.state = StateOutOfStock
	} else {
		s.state = StateResolved
	}
	return s.snapshot(), nil
}

// Confirm consumes one unit of the resolved product.
func (w *Workflow) Confirm(ctx context.Context, s *Session, userName string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateHalted {
		return s.snapshot(), ErrSessionHalted
	}
	if s.state != StateResolved || s.product == nil {
		return s.snapshot(), ErrNothingToConfirm
	}

	res, err := w.ledger.Consume(ctx, s.product.ID, userName)
	var partial *store.PartialWriteError
	switch {
	case err == nil, errors.As(err, &partial):
		s.state = StateConsumed
		s.lastConsumedCode = s.code
		s.lastEntry = res.Entry
		if res.Product != nil {
			s.product = res.Product
		}
		s.clearSources()
		s.state = StateIdle
		return s.snapshot(), err
	case errors.Is(err, store.ErrInsufficientStock):
		s.state = StateOutOfStock
		if p, lookupErr := w.catalog.Get(ctx, s.product.ID); lookupErr == nil {
			s.product = p
		}
		return s.snapshot(), err
	default:
		w.fail(s, err)
		return s.snapshot(), err
	}
}

// Reset clears the session, including the consumed-code guard and a halt.
func (w *Workflow) Reset(s *Session) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearSources()
	s.product = nil
	s.lastConsumedCode = ""
	s.lastEntry = nil
	s.state = StateIdle
	return s.snapshot()
}

func (w *Workflow) fail(s *Session, err error) {
	if errors.Is(err, store.ErrStorageUnavailable) {
		s.state = StateHalted
		w.log.Error("scan session halted", "session_id", s.ID, "error", err)
	}
}
