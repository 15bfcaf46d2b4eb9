package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a product code or id does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateCode is returned when adding a product whose code is taken.
	ErrDuplicateCode = errors.New("product code already exists")

	// ErrDuplicateEmail is returned when registering an email twice.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrInsufficientStock is returned when consuming an item with no stock left.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidQuantity is returned for negative absolute stock values or
	// non-positive misc quantities.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrStorageUnavailable wraps backend connection, auth and I/O failures.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrConcurrentUpdate is returned when a stock row no longer carries the
	// version the caller read.
	ErrConcurrentUpdate = errors.New("stock changed concurrently")

	// ErrPartialWrite marks a stock mutation whose history row was not written.
	ErrPartialWrite = errors.New("partial write")
)

// PartialWriteError reports a ledger mutation that was applied without its
// paired history entry.
type PartialWriteError struct {
	ProductID uint
	Delta     int
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("stock of product %d changed by %d but history append failed: %v", e.ProductID, e.Delta, e.Err)
}

func (e *PartialWriteError) Unwrap() []error {
	return []error{ErrPartialWrite, e.Err}
}

// Unavailable wraps err as ErrStorageUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStorageUnavailable, err)
}
