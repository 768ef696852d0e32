// Package pricing turns cart lines into item, shipping, tax and total amounts.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidCartLine is returned when a line has a non-positive quantity or
// a negative price.
var ErrInvalidCartLine = errors.New("invalid cart line")

var hundred = decimal.NewFromInt(100)

// Config holds the storefront pricing policy.
type Config struct {
	// FreeShippingThreshold is the items amount above which shipping is free.
	// An amount exactly equal to the threshold still pays shipping.
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultConfig returns free shipping above 100, a flat fee of 10 and 15% tax.
func DefaultConfig() Config {
	return Config{
		FreeShippingThreshold: decimal.NewFromInt(100),
		ShippingFee:           decimal.NewFromInt(10),
		TaxRate:               decimal.RequireFromString("0.15"),
	}
}

// Snapshot is the discounted unit price captured when a line was added or
// last refreshed.
type Snapshot struct {
	DiscountID string
	Percentage int
	Price      decimal.Decimal
}

// NewSnapshot captures price reduced by pct percent.
func NewSnapshot(discountID string, pct int, price decimal.Decimal) *Snapshot {
	return &Snapshot{
		DiscountID: discountID,
		Percentage: pct,
		Price:      DiscountedPrice(price, pct),
	}
}

// Line is a product in a cart or order.
type Line struct {
	ProductID string
	Name      string
	Image     string
	Price     decimal.Decimal
	Qty       int
	Discount  *Snapshot
}

// UnitPrice returns the snapshot price when present, the catalog price otherwise.
func (l Line) UnitPrice() decimal.Decimal {
	if l.Discount != nil {
		return l.Discount.Price
	}
	return l.Price
}

// Total returns UnitPrice multiplied by Qty.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice().Mul(decimal.NewFromInt(int64(l.Qty)))
}

func (l Line) validate() error {
	if l.Qty <= 0 {
		return errors.Wrapf(ErrInvalidCartLine, "product %s: quantity %d", l.ProductID, l.Qty)
	}
	if l.Price.IsNegative() {
		return errors.Wrapf(ErrInvalidCartLine, "product %s: negative price", l.ProductID)
	}
	if l.Discount != nil && l.Discount.Price.IsNegative() {
		return errors.Wrapf(ErrInvalidCartLine, "product %s: negative discounted price", l.ProductID)
	}
	return nil
}

// Totals are derived amounts for a set of lines.
type Totals struct {
	ItemsPrice    decimal.Decimal
	ShippingPrice decimal.Decimal
	TaxPrice      decimal.Decimal
	TotalPrice    decimal.Decimal
}

// DiscountedPrice returns price reduced by pct percent, rounded to cents.
func DiscountedPrice(price decimal.Decimal, pct int) decimal.Decimal {
	off := price.Mul(decimal.NewFromInt(int64(pct))).Div(hundred)
	return price.Sub(off).Round(2)
}
