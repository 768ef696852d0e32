package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func TestCalculator_Totals(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	tests := []struct {
		name                        string
		lines                       []Line
		items, shipping, tax, total string
	}{
		{
			name:  "empty cart",
			lines: nil,
			items: "0", shipping: "10", tax: "0", total: "10",
		},
		{
			name:  "items equal to threshold still pay shipping",
			lines: []Line{{ProductID: "p1", Price: d("50"), Qty: 2}},
			items: "100", shipping: "10", tax: "15", total: "125",
		},
		{
			name:  "items above threshold ship free",
			lines: []Line{{ProductID: "p1", Price: d("100.01"), Qty: 1}},
			items: "100.01", shipping: "0", tax: "15", total: "115.01",
		},
		{
			name: "discounted snapshot price used",
			lines: []Line{{
				ProductID: "p1", Price: d("50"), Qty: 2,
				Discount: NewSnapshot("d1", 10, d("50")),
			}},
			items: "90", shipping: "10", tax: "13.50", total: "113.50",
		},
		{
			name: "mixed lines",
			lines: []Line{
				{ProductID: "p1", Price: d("19.99"), Qty: 3},
				{ProductID: "p2", Price: d("5.00"), Qty: 1, Discount: NewSnapshot("d2", 50, d("5.00"))},
			},
			items: "62.47", shipping: "10", tax: "9.37", total: "81.84",
		},
		{
			name:  "tax rounds half up",
			lines: []Line{{ProductID: "p1", Price: d("0.10"), Qty: 1}},
			items: "0.10", shipping: "10", tax: "0.02", total: "10.12",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Totals(tt.lines)
			require.NoError(t, err)
			assertDecimal(t, tt.items, got.ItemsPrice, "items")
			assertDecimal(t, tt.shipping, got.ShippingPrice, "shipping")
			assertDecimal(t, tt.tax, got.TaxPrice, "tax")
			assertDecimal(t, tt.total, got.TotalPrice, "total")
		})
	}
}

func TestCalculator_Totals_InvalidLine(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	valid := Line{ProductID: "ok", Price: d("10"), Qty: 1}

	tests := []struct {
		name string
		line Line
	}{
		{name: "zero quantity", line: Line{ProductID: "p1", Price: d("10"), Qty: 0}},
		{name: "negative quantity", line: Line{ProductID: "p1", Price: d("10"), Qty: -2}},
		{name: "negative price", line: Line{ProductID: "p1", Price: d("-1"), Qty: 1}},
		{name: "negative snapshot", line: Line{
			ProductID: "p1", Price: d("1"), Qty: 1,
			Discount: &Snapshot{Price: d("-0.5")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Totals([]Line{valid, tt.line})
			require.ErrorIs(t, err, ErrInvalidCartLine)
			assert.Equal(t, Totals{}, got)
		})
	}
}

func TestCalculator_CustomConfig(t *testing.T) {
	calc := NewCalculator(Config{
		FreeShippingThreshold: d("50"),
		ShippingFee:           d("4.99"),
		TaxRate:               d("0.2"),
	})

	got, err := calc.Totals([]Line{{ProductID: "p1", Price: d("25"), Qty: 2}})
	require.NoError(t, err)
	assertDecimal(t, "4.99", got.ShippingPrice)
	assertDecimal(t, "10", got.TaxPrice)
	assertDecimal(t, "64.99", got.TotalPrice)
}

func TestDiscountedPrice(t *testing.T) {
	tests := []struct {
		price string
		pct   int
		want  string
	}{
		{price: "50", pct: 10, want: "45"},
		{price: "19.99", pct: 15, want: "16.99"},
		{price: "9.99", pct: 33, want: "6.69"},
		{price: "0.05", pct: 50, want: "0.03"},
		{price: "100", pct: 99, want: "1"},
	}
	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			assertDecimal(t, tt.want, DiscountedPrice(d(tt.price), tt.pct))
		})
	}
}

func TestLine_UnitPrice(t *testing.T) {
	plain := Line{ProductID: "p1", Price: d("12.50"), Qty: 2}
	assertDecimal(t, "12.50", plain.UnitPrice(), "no discount path equals catalog price")
	assertDecimal(t, "25", plain.Total())

	snap := plain
	snap.Discount = NewSnapshot("d1", 20, plain.Price)
	assertDecimal(t, "10", snap.UnitPrice())
	assertDecimal(t, "20", snap.Total())
}
