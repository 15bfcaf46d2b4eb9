package sheetstore

import "context"

// Sheet is one worksheet addressed with 1-based row and column numbers.
type Sheet interface {
	// Rows returns every row including the header. Trailing empty cells
	// may be missing.
	Rows(ctx context.Context) ([][]string, error)
	UpdateCell(ctx context.Context, row, col int, value any) error
	AppendRow(ctx context.Context, values []any) error
}

// Spreadsheet is a workbook holding named sheets.
type Spreadsheet interface {
	// EnsureSheet creates the sheet when missing and writes headers into an
	// empty sheet.
	EnsureSheet(ctx context.Context, name string, headers []string) error
	Sheet(name string) Sheet
	Close() error
}
