// Package gormstore is the relational backend. Stock changes are atomic
// increments under a row lock, and Atomically wraps a database transaction.
package gormstore

import (
	"context"
	"errors"

	"labstock-backend/internal/models"
	"labstock-backend/internal/store"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ store.Backend = (*Store)(nil)

type Store struct {
	db   *gorm.DB
	inTx bool
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrDuplicateCode),
		errors.Is(err, store.ErrDuplicateEmail),
		errors.Is(err, store.ErrConcurrentUpdate),
		errors.Is(err, store.ErrStorageUnavailable):
		return err
	default:
		return store.Unavailable(op, err)
	}
}

func (s *Store) FindProductByCode(ctx context.Context, code string) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		return nil, classify("find product by code", err)
	}
	return &p, nil
}

// FindProductByID locks the row when called inside Atomically, so a stock
// check made on the result holds until the transaction ends.
func (s *Store) FindProductByID(ctx context.Context, id uint) (*models.Product, error) {
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var p models.Product
	if err := q.First(&p, "id = ?", id).Error; err != nil {
		return nil, classify("find product", err)
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).Order("code asc").Find(&products).Error; err != nil {
		return nil, classify("list products", err)
	}
	return products, nil
}

func (s *Store) AddProduct(ctx context.Context, code, name, unit string, initialStock int) (*models.Product, error) {
	var existing models.Product
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&existing).Error
	if err == nil {
		return nil, store.ErrDuplicateCode
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, classify("add product", err)
	}

	p := models.Product{
		Code:         code,
		Name:         name,
		Unit:         unit,
		CurrentStock: initialStock,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, store.ErrDuplicateCode
		}
		return nil, classify("add product", err)
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id uint, name, unit string) (*models.Product, error) {
	return s.update(ctx, "update product", id, nil, map[string]any{"name": name, "unit": unit})
}

func (s *Store) AdjustStock(ctx context.Context, id uint, version int64, delta int) (*models.Product, error) {
	return s.update(ctx, "adjust stock", id, &version, map[string]any{
		"current_stock": gorm.Expr("current_stock + ?", delta),
		"version":       gorm.Expr("version + 1"),
	})
}

func (s *Store) SetStock(ctx context.Context, id uint, version int64, value int) (*models.Product, error) {
	return s.update(ctx, "set stock", id, &version, map[string]any{
		"current_stock": value,
		"version":       gorm.Expr("version + 1"),
	})
}

// update locks the row, applies the column updates and re-reads the row.
// A non-nil version must match the locked row.
func (s *Store) update(ctx context.Context, op string, id uint, version *int64, cols map[string]any) (*models.Product, error) {
	var out models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, "id = ?", id).Error; err != nil {
			return err
		}
		if version != nil && out.Version != *version {
			return store.ErrConcurrentUpdate
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return err
		}
		return tx.First(&out, "id = ?", id).Error
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return &out, nil
}

func (s *Store) AppendHistory(ctx context.Context, entry *models.HistoryEntry) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error; err != nil {
		return classify("append history", err)
	}
	return nil
}

func (s *Store) CountHistory(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.HistoryEntry{}).Count(&n).Error; err != nil {
		return 0, classify("count history", err)
	}
	return n, nil
}

func (s *Store) ListHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	var entries []models.HistoryEntry
	if err := s.db.WithContext(ctx).Order("timestamp DESC, sequence DESC").Find(&entries).Error; err != nil {
		return nil, classify("list history", err)
	}
	return entries, nil
}

func (s *Store) Atomically(ctx context.Context, fn func(store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, inTx: true})
	})
}

func (s *Store) Transactional() bool { return true }

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, classify("find user", err)
	}
	return &u, nil
}

func (s *Store) AddUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return store.ErrDuplicateEmail
		}
		return classify("add user", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
