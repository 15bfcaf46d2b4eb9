// Package memstore keeps the catalog, history and users in process memory.
// It backs local development and tests.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"labstock-backend/internal/models"
	"labstock-backend/internal/store"
)

var _ store.Backend = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	nextID   uint
	products map[uint]*models.Product
	byCode   map[string]uint
	history  []models.HistoryEntry
	users    map[string]models.User
}

func New() *Store {
	return &Store{
		products: make(map[uint]*models.Product),
		byCode:   make(map[string]uint),
		users:    make(map[string]models.User),
	}
}

func (s *Store) FindProductByCode(_ context.Context, code string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCode[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	p := *s.products[id]
	return &p, nil
}

func (s *Store) FindProductByID(_ context.Context, id uint) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProducts(_ context.Context) ([]models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		res = append(res, *p)
	}
	slices.SortFunc(res, func(a, b models.Product) int { return strings.Compare(a.Code, b.Code) })
	return res, nil
}

func (s *Store) AddProduct(_ context.Context, code, name, unit string, initialStock int) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byCode[code]; ok {
		return nil, store.ErrDuplicateCode
	}
	s.nextID++
	now := time.Now()
	p := &models.Product{
		ID:           s.nextID,
		Code:         code,
		Name:         name,
		Unit:         unit,
		CurrentStock: initialStock,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.products[p.ID] = p
	s.byCode[code] = p.ID
	cp := *p
	return &cp, nil
}

func (s *Store) UpdateProduct(_ context.Context, id uint, name, unit string) (*models.Product, error) {
	return s.mutate(id, func(p *models.Product) error {
		p.Name = name
		p.Unit = unit
		return nil
	})
}

func (s *Store) AdjustStock(_ context.Context, id uint, version int64, delta int) (*models.Product, error) {
	return s.mutateStock(id, version, func(p *models.Product) { p.CurrentStock += delta })
}

func (s *Store) SetStock(_ context.Context, id uint, version int64, value int) (*models.Product, error) {
	return s.mutateStock(id, version, func(p *models.Product) { p.CurrentStock = value })
}

func (s *Store) mutateStock(id uint, version int64, fn func(*models.Product)) (*models.Product, error) {
	return s.mutate(id, func(p *models.Product) error {
		if p.Version != version {
			return store.ErrConcurrentUpdate
		}
		fn(p)
		p.Version++
		return nil
	})
}

func (s *Store) mutate(id uint, fn func(*models.Product) error) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (s *Store) AppendHistory(_ context.Context, entry *models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := *entry
	e.ID = uint(len(s.history) + 1)
	s.history = append(s.history, e)
	entry.ID = e.ID
	return nil
}

func (s *Store) CountHistory(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.history)), nil
}

func (s *Store) ListHistory(_ context.Context) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	res := slices.Clone(s.history)
	s.mu.Unlock()
	store.SortHistoryNewestFirst(res)
	return res, nil
}

// Atomically has no rollback; ledger code treats this store like the
// spreadsheet backend.
func (s *Store) Atomically(_ context.Context, fn func(store.Store) error) error {
	return fn(s)
}

func (s *Store) Transactional() bool { return false }

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) AddUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return store.ErrDuplicateEmail
	}
	user.ID = uint(len(s.users) + 1)
	user.CreatedAt = time.Now()
	s.users[user.Email] = *user
	return nil
}

func (s *Store) Close() error { return nil }
