package sheetstore

import (
	"context"
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var _ Spreadsheet = (*GoogleSheets)(nil)

// GoogleSheets is a Spreadsheet stored in Google Sheets and authorized with
// a service-account key.
type GoogleSheets struct {
	svc *sheets.Service
	id  string
}

// CredentialsJSON returns the inline key when set, otherwise the content of
// the key file.
func CredentialsJSON(inline, path string) ([]byte, error) {
	if inline != "" {
		return []byte(inline), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	return b, nil
}

func OpenGoogleSheets(ctx context.Context, spreadsheetID string, credentials []byte) (*GoogleSheets, error) {
	return openGoogleSheets(ctx, spreadsheetID,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
}

func openGoogleSheets(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*GoogleSheets, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return &GoogleSheets{svc: svc, id: spreadsheetID}, nil
}

func (g *GoogleSheets) EnsureSheet(ctx context.Context, name string, headers []string) error {
	ss, err := g.svc.Spreadsheets.Get(g.id).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("open spreadsheet: %w", err)
	}

	found := false
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			found = true
			break
		}
	}
	if !found {
		req := &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: name}},
			}},
		}
		if _, err := g.svc.Spreadsheets.BatchUpdate(g.id, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("add sheet %s: %w", name, err)
		}
	}

	sh := g.Sheet(name)
	rows, err := sh.Rows(ctx)
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
	return sh.AppendRow(ctx, row)
}

func (g *GoogleSheets) Sheet(name string) Sheet {
	return &googleSheet{g: g, name: name}
}

func (g *GoogleSheets) Close() error { return nil }

// Values are written RAW: the API would otherwise parse codes such as "007"
// into numbers and timestamps into dates.
const valueInput = "RAW"

type googleSheet struct {
	g    *GoogleSheets
	name string
}

func (s *googleSheet) Rows(ctx context.Context) ([][]string, error) {
	resp, err := s.g.svc.Spreadsheets.Values.Get(s.g.id, s.name).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(resp.Values))
	for i, r := range resp.Values {
		rows[i] = make([]string, len(r))
		for j, v := range r {
			rows[i][j] = fmt.Sprint(v)
		}
	}
	return rows, nil
}

func (s *googleSheet) UpdateCell(ctx context.Context, row, col int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	vr := &sheets.ValueRange{Values: [][]any{{value}}}
	_, err = s.g.svc.Spreadsheets.Values.Update(s.g.id, fmt.Sprintf("'%s'!%s", s.name, cell), vr).
		ValueInputOption(valueInput).
		Context(ctx).
		Do()
	return err
}

func (s *googleSheet) AppendRow(ctx context.Context, values []any) error {
	vr := &sheets.ValueRange{Values: [][]any{values}}
	_, err := s.g.svc.Spreadsheets.Values.Append(s.g.id, s.name, vr).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}
