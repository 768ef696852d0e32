// Package cart holds the client cart as an explicit value. Every operation
// returns a new State and leaves its input untouched.
package cart

import (
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Parzival048/ecomreact/internal/domain/discount"
	"github.com/Parzival048/ecomreact/internal/domain/pricing"
	"github.com/Parzival048/ecomreact/internal/domain/product"
)

// ErrLineNotFound is returned when an operation targets a product that is not
// in the cart.
var ErrLineNotFound = errors.New("cart line not found")

// State is the cart contents.
type State struct {
	Lines []pricing.Line
}

func (s State) index(productID string) int {
	return slices.IndexFunc(s.Lines, func(l pricing.Line) bool {
		return l.ProductID == productID
	})
}

func (s State) clone() State {
	return State{Lines: slices.Clone(s.Lines)}
}

// Add puts qty units of p into the cart with an optional discount snapshot.
// Adding a product already in the cart sums the quantities and takes the new
// catalog data and snapshot. The snapshot price must equal p.Price reduced by
// the snapshot percentage.
func Add(s State, p product.Product, qty int, snap *pricing.Snapshot) (State, error) {
	if qty <= 0 {
		return s, errors.Wrapf(pricing.ErrInvalidCartLine, "product %s: quantity %d", p.ID, qty)
	}
	if err := checkSnapshot(p, snap); err != nil {
		return s, err
	}
	line := pricing.Line{
		ProductID: p.ID,
		Name:      p.Name,
		Image:     p.Image,
		Price:     p.Price,
		Qty:       qty,
		Discount:  snap,
	}

	next := s.clone()
	if i := next.index(p.ID); i >= 0 {
		line.Qty += next.Lines[i].Qty
		next.Lines[i] = line
		return next, nil
	}
	next.Lines = append(next.Lines, line)
	return next, nil
}

func checkSnapshot(p product.Product, snap *pricing.Snapshot) error {
	if snap == nil {
		return nil
	}
	if snap.Percentage < discount.MinPercentage || snap.Percentage > discount.MaxPercentage {
		return errors.Wrapf(pricing.ErrInvalidCartLine, "product %s: discount percentage %d", p.ID, snap.Percentage)
	}
	if want := pricing.DiscountedPrice(p.Price, snap.Percentage); !snap.Price.Equal(want) {
		return errors.Wrapf(pricing.ErrInvalidCartLine, "product %s: discounted price %s, want %s",
			p.ID, snap.Price.StringFixed(2), want.StringFixed(2))
	}
	return nil
}

// SetQty replaces the quantity of a line.
func SetQty(s State, productID string, qty int) (State, error) {
	if qty <= 0 {
		return s, errors.Wrapf(pricing.ErrInvalidCartLine, "product %s: quantity %d", productID, qty)
	}
	i := s.index(productID)
	if i < 0 {
		return s, ErrLineNotFound
	}
	next := s.clone()
	next.Lines[i].Qty = qty
	return next, nil
}

// Remove drops a line. Removing an absent product is a no-op.
func Remove(s State, productID string) State {
	return State{Lines: slices.DeleteFunc(slices.Clone(s.Lines), func(l pricing.Line) bool {
		return l.ProductID == productID
	})}
}

// Clear empties the cart.
func Clear(State) State {
	return State{}
}

// Refresh re-snapshots every line against discounts at now. Lines with no
// applicable discount lose their snapshot.
func Refresh(s State, discounts []discount.Discount, now time.Time) State {
	next := s.clone()
	for i, l := range next.Lines {
		next.Lines[i].Discount = SnapshotFor(discounts, l.ProductID, l.Price, now)
	}
	return next
}

// Quote computes the cart totals.
func Quote(s State, calc *pricing.Calculator) (pricing.Totals, error) {
	return calc.Totals(s.Lines)
}

// SnapshotFor captures the best discount for productID at now, or nil.
func SnapshotFor(discounts []discount.Discount, productID string, price decimal.Decimal, now time.Time) *pricing.Snapshot {
	d, ok := discount.Select(discounts, productID, now)
	if !ok {
		return nil
	}
	return pricing.NewSnapshot(d.ID, d.Percentage, price)
}
