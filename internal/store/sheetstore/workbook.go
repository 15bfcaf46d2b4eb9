package sheetstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/xuri/excelize/v2"
)

var _ Spreadsheet = (*Workbook)(nil)

// Workbook is a Spreadsheet kept in a local .xlsx file. Every write is
// saved back to disk, and the file is reopened whenever it changed on disk
// since this process last read or saved it.
type Workbook struct {
	mu   sync.Mutex
	path string
	f    *excelize.File
	seen stamp
}

// stamp identifies one saved state of the file.
type stamp struct {
	mod  int64
	size int64
}

func stampOf(path string) (stamp, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return stamp{}, err
	}
	return stamp{mod: fi.ModTime().UnixNano(), size: fi.Size()}, nil
}

// OpenWorkbook opens path, creating an empty workbook when it does not exist.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if errors.Is(err, os.ErrNotExist) {
		f = excelize.NewFile()
		if err := f.SaveAs(path); err != nil {
			return nil, fmt.Errorf("create workbook %s: %w", path, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	seen, err := stampOf(path)
	if err != nil {
		return nil, fmt.Errorf("stat workbook %s: %w", path, err)
	}
	return &Workbook{path: path, f: f, seen: seen}, nil
}

// reload picks up saves made by other processes. Callers hold mu.
func (w *Workbook) reload() error {
	now, err := stampOf(w.path)
	if err != nil {
		return fmt.Errorf("stat workbook %s: %w", w.path, err)
	}
	if now == w.seen {
		return nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return fmt.Errorf("reopen workbook %s: %w", w.path, err)
	}
	old := w.f
	w.f, w.seen = f, now
	return old.Close()
}

// save writes the workbook and remembers the stamp of our own save. Callers
// hold mu.
func (w *Workbook) save() error {
	if err := w.f.SaveAs(w.path); err != nil {
		return err
	}
	seen, err := stampOf(w.path)
	if err != nil {
		return err
	}
	w.seen = seen
	return nil
}

func (w *Workbook) EnsureSheet(_ context.Context, name string, headers []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.reload(); err != nil {
		return err
	}

	idx, err := w.f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	if idx == -1 {
		if _, err := w.f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		// excelize.NewFile starts with an unused default sheet.
		if def, _ := w.f.GetSheetIndex("Sheet1"); def != -1 && name != "Sheet1" {
			if err := w.f.DeleteSheet("Sheet1"); err != nil {
				return err
			}
		}
	}

	rows, err := w.f.GetRows(name)
	if err != nil {
		return err
	}
	if len(rows) > 0 {
		return nil
	}
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	if err := w.f.SetSheetRow(name, "A1", &row); err != nil {
		return err
	}
	return w.save()
}

func (w *Workbook) Sheet(name string) Sheet {
	return &workbookSheet{wb: w, name: name}
}

func (w *Workbook) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

type workbookSheet struct {
	wb   *Workbook
	name string
}

func (s *workbookSheet) Rows(_ context.Context) ([][]string, error) {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	if err := s.wb.reload(); err != nil {
		return nil, err
	}
	return s.wb.f.GetRows(s.name)
}

func (s *workbookSheet) UpdateCell(_ context.Context, row, col int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	if err := s.wb.reload(); err != nil {
		return err
	}
	if err := s.wb.f.SetCellValue(s.name, cell, value); err != nil {
		return err
	}
	return s.wb.save()
}

func (s *workbookSheet) AppendRow(_ context.Context, values []any) error {
	s.wb.mu.Lock()
	defer s.wb.mu.Unlock()
	if err := s.wb.reload(); err != nil {
		return err
	}
	rows, err := s.wb.f.GetRows(s.name)
	if err != nil {
		return err
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	if err := s.wb.f.SetSheetRow(s.name, cell, &values); err != nil {
		return err
	}
	return s.wb.save()
}
