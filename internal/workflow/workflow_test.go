package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"labstock-backend/internal/catalog"
	"labstock-backend/internal/history"
	"labstock-backend/internal/ledger"
	"labstock-backend/internal/logging"
	"labstock-backend/internal/models"
	"labstock-backend/internal/store"
	"labstock-backend/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	store    store.Store
	ledger   *ledger.Ledger
	workflow *Workflow
	session  *Session
}

func newHarness(t *testing.T, s store.Store) harness {
	t.Helper()
	h := history.New(s, time.UTC)
	l := ledger.New(s, h, logging.Discard())
	w := New(catalog.New(s), l, logging.Discard())
	return harness{store: s, ledger: l, workflow: w, session: NewSessions(0).Create(1)}
}

func (h harness) add(t *testing.T, code string, stock int) *models.Product {
	t.Helper()
	p, err := h.store.AddProduct(context.Background(), code, code+" name", "pcs", stock)
	require.NoError(t, err)
	return p
}

func (h harness) stock(t *testing.T, id uint) int {
	t.Helper()
	p, err := h.store.FindProductByID(context.Background(), id)
	require.NoError(t, err)
	return p.CurrentStock
}

func (h harness) historyLen(t *testing.T) int64 {
	t.Helper()
	n, err := h.store.CountHistory(context.Background())
	require.NoError(t, err)
	return n
}

func TestSwabScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, memstore.New())
	swab, err := h.store.AddProduct(ctx, "swab", "Cotton Swabs", "box", 3)
	require.NoError(t, err)

	snap, err := h.workflow.Offer(ctx, h.session, Input{Scanned: "swab"})
	require.NoError(t, err)
	assert.Equal(t, StateResolved, snap.State)
	assert.Equal(t, "Cotton Swabs", snap.Product.Name)

	snap, err = h.workflow.Confirm(ctx, h.session, "Aoi")
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "swab", snap.LastConsumedCode)
	require.NotNil(t, snap.LastEntry)
	assert.Equal(t, models.ChangeUse, snap.LastEntry.ChangeType)
	assert.Equal(t, 1, snap.LastEntry.Quantity)
	assert.Equal(t, 2, h.stock(t, swab.ID))
	assert.Equal(t, int64(1), h.historyLen(t))

	// A lingering scan of the same label is ignored.
	snap, err = h.workflow.Offer(ctx, h.session, Input{Scanned: "swab"})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
	_, err = h.workflow.Confirm(ctx, h.session, "Aoi")
	assert.ErrorIs(t, err, ErrNothingToConfirm)
	assert.Equal(t, 2, h.stock(t, swab.ID))
	assert.Equal(t, int64(1), h.historyLen(t))

	res, err := h.ledger.SetStock(ctx, swab.ID, 10, "admin")
	require.NoError(t, err)
	assert.Equal(t, 10, h.stock(t, swab.ID))
	assert.Equal(t, models.ChangeReceive, res.Entry.ChangeType)
	assert.Equal(t, 8, res.Entry.Quantity)
	assert.Equal(t, int64(2), h.historyLen(t))

	snap, err = h.workflow.Offer(ctx, h.session, Input{Scanned: "zzz"})
	require.NoError(t, err)
	assert.Equal(t, StateNotFound, snap.State)
	assert.Nil(t, snap.Product)
	assert.Equal(t, 10, h.stock(t, swab.ID))
	assert.Equal(t, int64(2), h.historyLen(t))
}

func TestOfferPrefersScannerOverLink(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, memstore.New())
	h.add(t, "tips", 5)
	h.add(t, "gloves", 5)

	snap, err := h.workflow.Offer(ctx, h.session, Input{
		Scanned: "gloves",
		Link:    "https://lab.example/scan?product_code=tips",
	})
	require.NoError(t, err)
	assert.Equal(t, "gloves", snap.Code)

	snap, err = h.workflow.Offer(ctx, h.session, Input{Link: "https://lab.example/scan?product_code=tips"})
	require.NoError(t, err)
	assert.Equal(t, "tips", snap.Code)
	assert.Equal(t, StateResolved, snap.State)
}

func TestOfferEmptyInputIsIdle(t *testing.T) {
	h := newHarness(t, memstore.New())
	snap, err := h.workflow.Offer(context.Background(), h.session, Input{Scanned: "  "})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, snap.State)
}

func TestGuardClearsOnDifferentCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, memstore.New())
	tips := h.add(t, "tips", 5)
	h.add(t, "gloves", 5)

	_, err := h.workflow.Offer(ctx, h.session, Input{Scanned: "tips"})
	require.NoError(t, err)
	_, err = h.workflow.Confirm(ctx, h.session, "Aoi")
	require.NoError(t, err)

	snap, err := h.workflow.Offer(ctx, h.session, Input{Scanned: "gloves"})
	require.NoError(t, err)
	assert.Empty(t, snap.LastConsumedCode)

	// tips is no longer the last consumed code and resolves again.
	snap, err = h.workflow.Offer(ctx, h.session, Input{Scanned: "tips"})
	require.NoError(t, err)
	assert.Equal(t, StateResolved, snap.State)
	_, err = h.workflow.Confirm(ctx, h.session, "Aoi")
	require.NoError(t, err)
	assert.Equal(t, 3, h.stock(t, tips.ID))
}

func TestOutOfStock(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, memstore.New())
	empty := h.add(t, "empty", 0)

	snap, err := h.workflow.Offer(ctx, h.session, Input{Scanned: "empty"})
	require.NoError(t, err)
	assert.Equal(t, StateOutOfStock, snap.State)

	_, err = h.workflow.Confirm(ctx, h.session, "Aoi")
	assert.ErrorIs(t, err, ErrNothingToConfirm)
	assert.Equal(t, 0, h.stock(t, empty.ID))
	assert.Equal(t, int64(0), h.historyLen(t))
}

func TestConfirmAfterStockDrained(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, memstore.New())
	last := h.add(t, "last", 1)

	_, err := h.workflow.Offer(ctx, h.session, Input{Scanned: "last"})
	require.NoError(t, err)

	// Someone else takes the last unit between resolve and confirm.
	_, err = h.ledger.Consume(ctx, last.ID, "Ren")
	require.NoError(t, err)

	snap, err := h.workflow.Confirm(ctx, h.session, "Aoi")
	assert.ErrorIs(t, err, store.ErrInsufficientStock)
	assert.Equal(t, StateOutOfStock, snap.State)
	assert.Equal(t, 0, snap.Product.CurrentStock)
	assert.Equal(t, int64(1), h.historyLen(t))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, memstore.New())
	tips := h.add(t, "tips", 5)

	_, err := h.workflow.Offer(ctx, h.session, Input{Scanned: "tips"})
	require.NoError(t, err)
	_, err = h.workflow.Confirm(ctx, h.session, "Aoi")
	require.NoError(t, err)

	snap := h.workflow.Reset(h.session)
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.LastConsumedCode)

	snap, err = h.workflow.Offer(ctx, h.session, Input{Scanned: "tips"})
	require.NoError(t, err)
	assert.Equal(t, StateResolved, snap.State)
	assert.Equal(t, 4, h.stock(t, tips.ID))
}

// flakyStore fails every call once broken is set.
type flakyStore struct {
	*memstore.Store
	broken       bool
	brokenAppend bool
}

var errOffline = errors.New("offline")

func (f *flakyStore) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	if f.broken {
		return nil, store.Unavailable("find product", errOffline)
	}
	return f.Store.FindProductByCode(ctx, code)
}

func (f *flakyStore) FindProductByID(ctx context.Context, id uint) (*models.Product, error) {
	if f.broken {
		return nil, store.Unavailable("find product", errOffline)
	}
	return f.Store.FindProductByID(ctx, id)
}

func (f *flakyStore) AppendHistory(ctx context.Context, e *models.HistoryEntry) error {
	if f.brokenAppend {
		return store.Unavailable("append history", errOffline)
	}
	return f.Store.AppendHistory(ctx, e)
}

func (f *flakyStore) Atomically(_ context.Context, fn func(store.Store) error) error {
	return fn(f)
}

func TestStorageFailureHaltsSession(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{Store: memstore.New()}
	h := newHarness(t, fs)
	h.add(t, "tips", 5)

	_, err := h.workflow.Offer(ctx, h.session, Input{Scanned: "tips"})
	require.NoError(t, err)

	fs.broken = true
	snap, err := h.workflow.Confirm(ctx, h.session, "Aoi")
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.Equal(t, StateHalted, snap.State)

	fs.broken = false
	_, err = h.workflow.Offer(ctx, h.session, Input{Scanned: "tips"})
	assert.ErrorIs(t, err, ErrSessionHalted)
	_, err = h.workflow.Confirm(ctx, h.session, "Aoi")
	assert.ErrorIs(t, err, ErrSessionHalted)

	h.workflow.Reset(h.session)
	snap, err = h.workflow.Offer(ctx, h.session, Input{Scanned: "tips"})
	require.NoError(t, err)
	assert.Equal(t, StateResolved, snap.State)
}

func TestPartialWriteCountsAsConsumed(t *testing.T) {
	ctx := context.Background()
	fs := &flakyStore{Store: memstore.New()}
	h := newHarness(t, fs)
	tips := h.add(t, "tips", 5)

	_, err := h.workflow.Offer(ctx, h.session, Input{Scanned: "tips"})
	require.NoError(t, err)

	fs.brokenAppend = true
	snap, err := h.workflow.Confirm(ctx, h.session, "Aoi")
	assert.ErrorIs(t, err, store.ErrPartialWrite)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, "tips", snap.LastConsumedCode)
	assert.Equal(t, 4, h.stock(t, tips.ID))

	fs.brokenAppend = false
	_, err = h.workflow.Offer(ctx, h.session, Input{Scanned: "tips"})
	require.NoError(t, err)
	assert.Equal(t, 4, h.stock(t, tips.ID))
}
