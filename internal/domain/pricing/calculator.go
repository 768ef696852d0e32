package pricing

import "github.com/shopspring/decimal"

// Calculator applies a Config to cart lines. It holds no mutable state.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator for cfg.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Config returns the policy the calculator applies.
func (c *Calculator) Config() Config {
	return c.cfg
}

// Totals computes the cart amounts. Tax is charged once on the items amount
// and rounded half-up to cents. Any invalid line fails the whole call.
func (c *Calculator) Totals(lines []Line) (Totals, error) {
	items := decimal.Zero
	for _, l := range lines {
		if err := l.validate(); err != nil {
			return Totals{}, err
		}
		items = items.Add(l.Total())
	}

	shipping := c.cfg.ShippingFee
	if items.GreaterThan(c.cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	// Round is half away from zero, which is half-up for non-negative amounts.
	tax := items.Mul(c.cfg.TaxRate).Round(2)

	return Totals{
		ItemsPrice:    items,
		ShippingPrice: shipping,
		TaxPrice:      tax,
		TotalPrice:    items.Add(shipping).Add(tax).Round(2),
	}, nil
}
