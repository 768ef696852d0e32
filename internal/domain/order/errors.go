package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order operations.
var (
	ErrEmptyItems       = errors.New("items required")
	ErrInvalidQuantity  = errors.New("quantity must be greater than 0")
	ErrNotFound         = errors.New("order not found")
	ErrAlreadyPaid      = errors.New("order already paid")
	ErrAlreadyDelivered = errors.New("order already delivered")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

func (e *InvalidQuantityError) Unwrap() error {
	return ErrInvalidQuantity
}

// InsufficientStockError indicates a product has fewer units than requested.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s: requested %d, %d in stock", e.ProductID, e.Requested, e.Available)
}
