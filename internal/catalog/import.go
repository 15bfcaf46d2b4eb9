package catalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseSeedWorkbook reads a catalog from the first sheet of an xlsx file.
// Columns are code, name, unit and an optional stock; a leading header row
// is skipped when its first cell reads "code" or "product_code".
func ParseSeedWorkbook(r io.Reader) ([]SeedItem, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 {
		switch strings.ToLower(strings.TrimSpace(rows[0][0])) {
		case "code", CodeParam:
			start = 1
		}
	}

	items := make([]SeedItem, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		it := SeedItem{Code: cell(row, 0), Name: cell(row, 1), Unit: cell(row, 2)}
		if s := cell(row, 3); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("row %d: stock %q is not a whole number", i+1, s)
			}
			it.Stock = n
		}
		items = append(items, it)
	}
	return items, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
