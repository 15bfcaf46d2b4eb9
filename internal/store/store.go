// Package store defines the persistence port shared by every storage backend.
package store

import (
	"context"

	"labstock-backend/internal/models"
)

// Store persists products and their stock history. Exactly one backend
// implementation is active per process.
type Store interface {
	FindProductByCode(ctx context.Context, code string) (*models.Product, error)
	FindProductByID(ctx context.Context, id uint) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	AddProduct(ctx context.Context, code, name, unit string, initialStock int) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uint, name, unit string) (*models.Product, error)

	// AdjustStock applies CurrentStock += delta and returns the updated row.
	// version is the Version the caller read; a row that has moved on since
	// fails with ErrConcurrentUpdate and is left untouched.
	AdjustStock(ctx context.Context, id uint, version int64, delta int) (*models.Product, error)
	// SetStock overwrites CurrentStock under the same version check.
	SetStock(ctx context.Context, id uint, version int64, value int) (*models.Product, error)

	AppendHistory(ctx context.Context, entry *models.HistoryEntry) error
	CountHistory(ctx context.Context) (int64, error)
	// ListHistory returns raw rows newest-first by timestamp.
	ListHistory(ctx context.Context) ([]models.HistoryEntry, error)

	// Atomically runs fn against a Store bound to one unit of work. Backends
	// without transactions run fn directly against themselves.
	Atomically(ctx context.Context, fn func(Store) error) error
	// Transactional reports whether Atomically rolls back on error.
	Transactional() bool
}

// UserStore persists login accounts.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	AddUser(ctx context.Context, user *models.User) error
}

// Backend is a full storage backend.
type Backend interface {
	Store
	UserStore
	Close() error
}
