package store

import (
	"cmp"
	"slices"
	"strings"

	"labstock-backend/internal/models"
)

// SortHistoryNewestFirst orders entries by timestamp string, newest first,
// breaking ties by sequence.
func SortHistoryNewestFirst(entries []models.HistoryEntry) {
	slices.SortStableFunc(entries, func(a, b models.HistoryEntry) int {
		if c := strings.Compare(b.Timestamp, a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.Sequence, a.Sequence)
	})
}
