package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInvalidProduct is returned when a product fails catalog validation.
	ErrInvalidProduct = errors.New("invalid product")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID           string
	Name         string
	Description  string
	Brand        string
	Category     string
	Image        string
	Price        decimal.Decimal
	CountInStock int
	UpdatedAt    time.Time
}

// InStock reports whether qty units can be taken from stock.
func (p Product) InStock(qty int) bool {
	return qty <= p.CountInStock
}

// Validate checks catalog invariants before a product is stored.
func (p Product) Validate() error {
	switch {
	case p.ID == "":
		return errors.Wrap(ErrInvalidProduct, "id is required")
	case p.Name == "":
		return errors.Wrap(ErrInvalidProduct, "name is required")
	case p.Price.IsNegative():
		return errors.Wrapf(ErrInvalidProduct, "product %s: negative price", p.ID)
	case p.CountInStock < 0:
		return errors.Wrapf(ErrInvalidProduct, "product %s: negative stock", p.ID)
	}
	return nil
}

// Repository defines operations on the product catalog. Stock is changed only
// by order placement, inside the order repository's transaction.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Upsert(ctx context.Context, p *Product) error
}
