package history

import (
	"bytes"
	"context"
	"testing"
	"time"

	"labstock-backend/internal/models"
	"labstock-backend/internal/store"
	"labstock-backend/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ptr(id uint) *uint { return &id }

// stepClock advances one second per call.
func stepClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func TestAppendAssignsSequenceAndTimestamp(t *testing.T) {
	ctx := context.Background()
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	s := memstore.New()
	p, err := s.AddProduct(ctx, "swab", "Cotton Swabs", "box", 3)
	require.NoError(t, err)

	l := New(s, tokyo).WithClock(stepClock(time.Date(2025, 1, 31, 14, 59, 58, 0, time.UTC)))

	first := &models.HistoryEntry{ProductID: &p.ID, UserName: "Aoi", ChangeType: models.ChangeUse, Quantity: 1}
	require.NoError(t, l.Append(ctx, nil, first))
	second := &models.HistoryEntry{MiscItemName: "tape", UserName: "Aoi", ChangeType: models.ChangeMiscUse, Quantity: 2}
	require.NoError(t, l.Append(ctx, s, second))

	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, "2025-01-31 23:59:59", first.Timestamp)
	assert.Equal(t, int64(2), second.Sequence)
	assert.Equal(t, "2025-02-01 00:00:00", second.Timestamp)
}

func TestAppendRejectsInvalidEntries(t *testing.T) {
	l := New(memstore.New(), time.UTC)
	ctx := context.Background()

	err := l.Append(ctx, nil, &models.HistoryEntry{UserName: "x", ChangeType: models.ChangeUse, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	err = l.Append(ctx, nil, &models.HistoryEntry{ProductID: ptr(1), MiscItemName: "both", ChangeType: models.ChangeUse, Quantity: 1})
	assert.ErrorIs(t, err, ErrInvalidEntry)

	err = l.Append(ctx, nil, &models.HistoryEntry{ProductID: ptr(1), ChangeType: models.ChangeUse, Quantity: 0})
	assert.ErrorIs(t, err, store.ErrInvalidQuantity)
}

// shuffledStore returns history in insertion order, like a spreadsheet.
type shuffledStore struct {
	*memstore.Store
	rows []models.HistoryEntry
}

func (s *shuffledStore) ListHistory(context.Context) ([]models.HistoryEntry, error) {
	return append([]models.HistoryEntry(nil), s.rows...), nil
}

func TestListAllJoinsNamesAndSortsNewestFirst(t *testing.T) {
	ctx := context.Background()
	mem := memstore.New()
	swab, err := mem.AddProduct(ctx, "swab", "Cotton Swabs", "box", 3)
	require.NoError(t, err)
	_, err = mem.UpdateProduct(ctx, swab.ID, "Cotton Swabs (long)", "box")
	require.NoError(t, err)

	s := &shuffledStore{Store: mem, rows: []models.HistoryEntry{
		{Sequence: 1, ProductID: &swab.ID, ChangeType: models.ChangeUse, Quantity: 1, Timestamp: "2025-01-02 09:00:00"},
		{Sequence: 2, MiscItemName: "tape", ChangeType: models.ChangeMiscUse, Quantity: 1, Timestamp: "2025-01-03 09:00:00"},
		{Sequence: 3, ProductID: ptr(99), ChangeType: models.ChangeUse, Quantity: 1, Timestamp: "2025-01-01 09:00:00"},
		{Sequence: 4, ProductID: ptr(99), MiscItemName: "", ChangeType: models.ChangeAdjust, Quantity: 1, Timestamp: "2025-01-03 09:00:00"},
	}}

	views, err := New(s, time.UTC).ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, views, 4)

	var seqs []int64
	for _, v := range views {
		seqs = append(seqs, v.Sequence)
	}
	assert.Equal(t, []int64{4, 2, 1, 3}, seqs)

	assert.Equal(t, models.UnknownItemName, views[0].Name)
	assert.Equal(t, "tape", views[1].Name)
	assert.Equal(t, "Cotton Swabs (long)", views[2].Name, "names follow the current catalog")
	assert.Equal(t, models.UnknownItemName, views[3].Name)
}

func TestExport(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	p, err := s.AddProduct(ctx, "wipe", "Kimwipes", "box", 4)
	require.NoError(t, err)
	l := New(s, time.UTC).WithClock(stepClock(time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, l.Append(ctx, nil, &models.HistoryEntry{ProductID: &p.ID, UserName: "Ren", ChangeType: models.ChangeReceive, Quantity: 6}))

	var buf bytes.Buffer
	require.NoError(t, l.Export(ctx, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("history")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"timestamp", "user_name", "name", "change_type", "quantity"}, rows[0])
	assert.Equal(t, []string{"2025-05-01 08:00:01", "Ren", "Kimwipes", "RECEIVE", "6"}, rows[1])
}
