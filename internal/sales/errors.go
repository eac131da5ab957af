package sales

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned for an empty or malformed sale request.
var ErrInvalidRequest = errors.New("invalid sale request")

// ErrProductNotFound matches any ProductNotFoundError.
var ErrProductNotFound = errors.New("product not found")

// ErrInsufficientStock matches any InsufficientStockError.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrStoreFailure matches any StoreError.
var ErrStoreFailure = errors.New("store failure")

// ErrInvalidProduct is returned when a product fails catalog validation.
var ErrInvalidProduct = errors.New("invalid product")

// ProductNotFoundError reports a sale line referencing an unknown product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// InsufficientStockError reports a line asking for more than is available.
// Available is 0 when the product has no stock quantity set.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// StoreError wraps a persistence failure that aborted a settlement.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure during %s: %v", e.Op, e.Err)
}

// Unwrap exposes both ErrStoreFailure and the underlying cause.
func (e *StoreError) Unwrap() []error { return []error{ErrStoreFailure, e.Err} }

func invalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
