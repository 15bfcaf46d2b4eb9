// Package sheetstore is the spreadsheet backend. It runs over a local xlsx
// workbook or a Google spreadsheet; both offer only whole-sheet reads, single
// cell updates and row appends, so there are no transactions.
package sheetstore

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"labstock-backend/internal/models"
	"labstock-backend/internal/store"
)

const (
	productsSheet = "products"
	historySheet  = "stock_history"
	usersSheet    = "users"
)

var (
	productHeaders = []string{"id", "product_code", "name", "unit", "current_stock", "created_at", "version"}
	historyHeaders = []string{"id", "product_id", "user_name", "change_type", "quantity", "timestamp", "misc_item_name"}
	userHeaders    = []string{"name", "email", "hashed_password", "role"}
)

var _ store.Backend = (*Store)(nil)

type Store struct {
	book Spreadsheet
	loc  *time.Location
	now  func() time.Time

	// mu serializes read-modify-write sequences issued by this process.
	mu sync.Mutex
}

// New prepares the products, stock_history and users sheets.
func New(ctx context.Context, book Spreadsheet, loc *time.Location) (*Store, error) {
	if loc == nil {
		loc = time.UTC
	}
	for name, headers := range map[string][]string{
		productsSheet: productHeaders,
		historySheet:  historyHeaders,
		usersSheet:    userHeaders,
	} {
		if err := book.EnsureSheet(ctx, name, headers); err != nil {
			return nil, store.Unavailable("prepare sheet "+name, err)
		}
	}
	return &Store{book: book, loc: loc, now: time.Now}, nil
}

// table is a sheet read as header-keyed rows. Data row i lives on sheet
// row i+2.
type table struct {
	cols map[string]int
	rows [][]string
}

func (s *Store) read(ctx context.Context, sheet string) (*table, error) {
	raw, err := s.book.Sheet(sheet).Rows(ctx)
	if err != nil {
		return nil, store.Unavailable("read "+sheet, err)
	}
	t := &table{cols: make(map[string]int)}
	if len(raw) == 0 {
		return t, nil
	}
	for i, h := range raw[0] {
		t.cols[strings.TrimSpace(h)] = i
	}
	t.rows = raw[1:]
	return t, nil
}

func (t *table) has(col string) bool {
	_, ok := t.cols[col]
	return ok
}

func (t *table) get(i int, col string) string {
	c, ok := t.cols[col]
	if !ok || c >= len(t.rows[i]) {
		return ""
	}
	return strings.TrimSpace(t.rows[i][c])
}

// find returns the first data row whose col equals value.
func (t *table) find(col, value string) (int, bool) {
	for i := range t.rows {
		if t.get(i, col) == value {
			return i, true
		}
	}
	return 0, false
}

// record lays values out in the sheet's own column order; keys without a
// header are dropped.
func (t *table) record(values map[string]any) []any {
	width := 0
	for _, c := range t.cols {
		width = max(width, c+1)
	}
	row := make([]any, width)
	for i := range row {
		row[i] = ""
	}
	for k, v := range values {
		if c, ok := t.cols[k]; ok {
			row[c] = v
		}
	}
	return row
}

// sheetRow converts a data row index into the sheet's 1-based row number.
func sheetRow(i int) int { return i + 2 }

// sheetCol converts a header name into the sheet's 1-based column number.
func (t *table) sheetCol(col string) int { return t.cols[col] + 1 }

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		// Spreadsheets sometimes render integers as "3.0".
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int(f)
		}
		return 0
	}
	return n
}

func (s *Store) product(t *table, i int) models.Product {
	id, _ := strconv.ParseUint(t.get(i, "id"), 10, 64)
	p := models.Product{
		ID:           uint(id),
		Code:         t.get(i, "product_code"),
		Name:         t.get(i, "name"),
		Unit:         t.get(i, "unit"),
		CurrentStock: atoi(t.get(i, "current_stock")),
		Version:      int64(atoi(t.get(i, "version"))),
	}
	if ts, err := time.ParseInLocation(models.TimestampLayout, t.get(i, "created_at"), s.loc); err == nil {
		p.CreatedAt = ts
		p.UpdatedAt = ts
	}
	return p
}

func (s *Store) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	t, err := s.read(ctx, productsSheet)
	if err != nil {
		return nil, err
	}
	i, ok := t.find("product_code", code)
	if !ok {
		return nil, store.ErrNotFound
	}
	p := s.product(t, i)
	return &p, nil
}

func (s *Store) FindProductByID(ctx context.Context, id uint) (*models.Product, error) {
	t, err := s.read(ctx, productsSheet)
	if err != nil {
		return nil, err
	}
	i, ok := t.find("id", strconv.FormatUint(uint64(id), 10))
	if !ok {
		return nil, store.ErrNotFound
	}
	p := s.product(t, i)
	return &p, nil
}

// ListProducts returns rows in sheet order, including rows without an id.
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	t, err := s.read(ctx, productsSheet)
	if err != nil {
		return nil, err
	}
	res := make([]models.Product, 0, len(t.rows))
	for i := range t.rows {
		if len(t.rows[i]) == 0 {
			continue
		}
		res = append(res, s.product(t, i))
	}
	return res, nil
}

func (s *Store) AddProduct(ctx context.Context, code, name, unit string, initialStock int) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.read(ctx, productsSheet)
	if err != nil {
		return nil, err
	}
	if _, ok := t.find("product_code", code); ok {
		return nil, store.ErrDuplicateCode
	}
	var maxID uint64
	for i := range t.rows {
		if id, err := strconv.ParseUint(t.get(i, "id"), 10, 64); err == nil && id > maxID {
			maxID = id
		}
	}

	now := s.now().In(s.loc)
	p := models.Product{
		ID:           uint(maxID + 1),
		Code:         code,
		Name:         name,
		Unit:         unit,
		CurrentStock: initialStock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	row := t.record(map[string]any{
		"id":            p.ID,
		"product_code":  p.Code,
		"name":          p.Name,
		"unit":          p.Unit,
		"current_stock": p.CurrentStock,
		"created_at":    now.Format(models.TimestampLayout),
		"version":       p.Version,
	})
	if err := s.book.Sheet(productsSheet).AppendRow(ctx, row); err != nil {
		return nil, store.Unavailable("add product", err)
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id uint, name, unit string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, i, err := s.productRow(ctx, id)
	if err != nil {
		return nil, err
	}
	sh := s.book.Sheet(productsSheet)
	if err := sh.UpdateCell(ctx, sheetRow(i), t.sheetCol("name"), name); err != nil {
		return nil, store.Unavailable("update product", err)
	}
	if err := sh.UpdateCell(ctx, sheetRow(i), t.sheetCol("unit"), unit); err != nil {
		return nil, store.Unavailable("update product", err)
	}
	p := s.product(t, i)
	p.Name, p.Unit = name, unit
	return &p, nil
}

func (s *Store) AdjustStock(ctx context.Context, id uint, version int64, delta int) (*models.Product, error) {
	return s.writeStock(ctx, id, version, func(cur int) int { return cur + delta })
}

func (s *Store) SetStock(ctx context.Context, id uint, version int64, value int) (*models.Product, error) {
	return s.writeStock(ctx, id, version, func(int) int { return value })
}

func (s *Store) productRow(ctx context.Context, id uint) (*table, int, error) {
	t, err := s.read(ctx, productsSheet)
	if err != nil {
		return nil, 0, err
	}
	i, ok := t.find("id", strconv.FormatUint(uint64(id), 10))
	if !ok {
		return nil, 0, store.ErrNotFound
	}
	return t, i, nil
}

// writeStock moves the stock of a row that is still at version. The bumped
// version is written first as a claim; the row is then re-read and the stock
// cell is written only while it still shows the claim and the stock that was
// read. Two writers claiming the same version between the claim and the
// re-read both pass, since a sheet has no compare-and-set. Sheets without a
// version column are guarded by the process mutex alone.
func (s *Store) writeStock(ctx context.Context, id uint, version int64, next func(int) int) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, i, err := s.productRow(ctx, id)
	if err != nil {
		return nil, err
	}
	p := s.product(t, i)
	sh := s.book.Sheet(productsSheet)

	if t.has("version") {
		if p.Version != version {
			return nil, store.ErrConcurrentUpdate
		}
		claim := version + 1
		if err := sh.UpdateCell(ctx, sheetRow(i), t.sheetCol("version"), claim); err != nil {
			return nil, store.Unavailable("claim stock row", err)
		}
		again, j, err := s.productRow(ctx, id)
		if err != nil {
			return nil, err
		}
		cur := s.product(again, j)
		if j != i || cur.Version != claim || cur.CurrentStock != p.CurrentStock {
			return nil, store.ErrConcurrentUpdate
		}
		p.Version = claim
	}

	// The stock cell is the last write, so a failure leaves the stock as it was.
	p.CurrentStock = next(p.CurrentStock)
	if err := sh.UpdateCell(ctx, sheetRow(i), t.sheetCol("current_stock"), p.CurrentStock); err != nil {
		return nil, store.Unavailable("write stock", err)
	}
	return &p, nil
}

func (s *Store) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	t, err := s.read(ctx, historySheet)
	if err != nil {
		return err
	}
	productID := ""
	if entry.ProductID != nil {
		productID = strconv.FormatUint(uint64(*entry.ProductID), 10)
	}
	row := t.record(map[string]any{
		"id":             entry.Sequence,
		"product_id":     productID,
		"user_name":      entry.UserName,
		"change_type":    string(entry.ChangeType),
		"quantity":       entry.Quantity,
		"timestamp":      entry.Timestamp,
		"misc_item_name": entry.MiscItemName,
	})
	if err := s.book.Sheet(historySheet).AppendRow(ctx, row); err != nil {
		return store.Unavailable("append history", err)
	}
	entry.ID = uint(entry.Sequence)
	return nil
}

func (s *Store) CountHistory(ctx context.Context) (int64, error) {
	t, err := s.read(ctx, historySheet)
	if err != nil {
		return 0, err
	}
	return int64(len(t.rows)), nil
}

func (s *Store) ListHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	t, err := s.read(ctx, historySheet)
	if err != nil {
		return nil, err
	}
	res := make([]models.HistoryEntry, 0, len(t.rows))
	for i := range t.rows {
		if len(t.rows[i]) == 0 {
			continue
		}
		e := models.HistoryEntry{
			Sequence:     int64(atoi(t.get(i, "id"))),
			UserName:     t.get(i, "user_name"),
			Quantity:     atoi(t.get(i, "quantity")),
			Timestamp:    t.get(i, "timestamp"),
			MiscItemName: t.get(i, "misc_item_name"),
		}
		e.ID = uint(e.Sequence)
		if id, err := strconv.ParseUint(t.get(i, "product_id"), 10, 64); err == nil {
			pid := uint(id)
			e.ProductID = &pid
		}
		raw := t.get(i, "change_type")
		if ct, ok := models.ParseChangeType(raw); ok {
			e.ChangeType = ct
		} else {
			e.ChangeType = models.ChangeType(raw)
		}
		res = append(res, e)
	}
	store.SortHistoryNewestFirst(res)
	return res, nil
}

// Atomically runs fn directly; a spreadsheet has no rollback.
func (s *Store) Atomically(_ context.Context, fn func(store.Store) error) error {
	return fn(s)
}

func (s *Store) Transactional() bool { return false }

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	t, err := s.read(ctx, usersSheet)
	if err != nil {
		return nil, err
	}
	i, ok := t.find("email", email)
	if !ok {
		return nil, store.ErrNotFound
	}
	role := models.UserRole(t.get(i, "role"))
	if role == "" {
		role = models.RoleMember
	}
	return &models.User{
		ID:           uint(i + 1),
		Name:         t.get(i, "name"),
		Email:        t.get(i, "email"),
		PasswordHash: t.get(i, "hashed_password"),
		Role:         role,
	}, nil
}

func (s *Store) AddUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.read(ctx, usersSheet)
	if err != nil {
		return err
	}
	if _, ok := t.find("email", user.Email); ok {
		return store.ErrDuplicateEmail
	}
	row := t.record(map[string]any{
		"name":            user.Name,
		"email":           user.Email,
		"hashed_password": user.PasswordHash,
		"role":            string(user.Role),
	})
	if err := s.book.Sheet(usersSheet).AppendRow(ctx, row); err != nil {
		return store.Unavailable("add user", err)
	}
	user.ID = uint(len(t.rows) + 1)
	return nil
}

func (s *Store) Close() error {
	return s.book.Close()
}
