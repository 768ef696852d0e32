package cart

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parzival048/ecomreact/internal/domain/discount"
	"github.com/Parzival048/ecomreact/internal/domain/pricing"
	"github.com/Parzival048/ecomreact/internal/domain/product"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newProduct(id, price string) product.Product {
	return product.Product{
		ID:           id,
		Name:         "Product " + id,
		Image:        "/images/" + id + ".jpg",
		Price:        decimal.RequireFromString(price),
		CountInStock: 10,
	}
}

func runningDiscount(id string, pct int, products ...string) discount.Discount {
	return discount.Discount{
		ID:                 id,
		Percentage:         pct,
		StartDate:          now.Add(-time.Hour),
		EndDate:            now.Add(time.Hour),
		IsActive:           true,
		ApplyToAllProducts: len(products) == 0,
		ApplicableProducts: products,
	}
}

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestAdd(t *testing.T) {
	p1 := newProduct("p1", "50")
	p2 := newProduct("p2", "12.50")

	s, err := Add(State{}, p1, 1, nil)
	require.NoError(t, err)
	s, err = Add(s, p2, 2, nil)
	require.NoError(t, err)

	merged, err := Add(s, p1, 2, pricing.NewSnapshot("d1", 10, p1.Price))
	require.NoError(t, err)

	want := State{Lines: []pricing.Line{
		{
			ProductID: "p1", Name: "Product p1", Image: "/images/p1.jpg",
			Price: decimal.NewFromInt(50), Qty: 3,
			Discount: &pricing.Snapshot{DiscountID: "d1", Percentage: 10, Price: decimal.NewFromInt(45)},
		},
		{
			ProductID: "p2", Name: "Product p2", Image: "/images/p2.jpg",
			Price: decimal.RequireFromString("12.50"), Qty: 2,
		},
	}}
	if diff := cmp.Diff(want, merged, decimalEqual); diff != "" {
		t.Errorf("Add() mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, 1, s.Lines[0].Qty, "previous state is not modified")
	assert.Nil(t, s.Lines[0].Discount)
}

func TestAdd_InvalidQty(t *testing.T) {
	_, err := Add(State{}, newProduct("p1", "1"), 0, nil)
	require.ErrorIs(t, err, pricing.ErrInvalidCartLine)
}

func TestAdd_Snapshot(t *testing.T) {
	p := newProduct("p1", "50")

	tests := []struct {
		name    string
		snap    *pricing.Snapshot
		wantErr bool
	}{
		{name: "consistent", snap: pricing.NewSnapshot("d1", 10, p.Price)},
		{name: "forged price", snap: &pricing.Snapshot{DiscountID: "d1", Percentage: 10, Price: decimal.RequireFromString("0.01")}, wantErr: true},
		{name: "zero percent", snap: &pricing.Snapshot{DiscountID: "d1", Percentage: 0, Price: decimal.RequireFromString("999")}, wantErr: true},
		{name: "percent above range", snap: &pricing.Snapshot{DiscountID: "d1", Percentage: 100, Price: decimal.Zero}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Add(State{}, p, 2, tt.snap)
			if tt.wantErr {
				require.ErrorIs(t, err, pricing.ErrInvalidCartLine)
				assert.Empty(t, s.Lines)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "45.00", s.Lines[0].UnitPrice().StringFixed(2))
		})
	}
}

func TestSetQty(t *testing.T) {
	s, err := Add(State{}, newProduct("p1", "5"), 1, nil)
	require.NoError(t, err)

	next, err := SetQty(s, "p1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, next.Lines[0].Qty)
	assert.Equal(t, 1, s.Lines[0].Qty)

	_, err = SetQty(s, "p1", 0)
	require.ErrorIs(t, err, pricing.ErrInvalidCartLine)

	_, err = SetQty(s, "missing", 2)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestRemoveAndClear(t *testing.T) {
	s, err := Add(State{}, newProduct("p1", "5"), 1, nil)
	require.NoError(t, err)
	s, err = Add(s, newProduct("p2", "6"), 1, nil)
	require.NoError(t, err)

	removed := Remove(s, "p1")
	require.Len(t, removed.Lines, 1)
	assert.Equal(t, "p2", removed.Lines[0].ProductID)
	assert.Len(t, s.Lines, 2)

	assert.Equal(t, removed, Remove(removed, "absent"))
	assert.Empty(t, Clear(s).Lines)
}

func TestRefresh(t *testing.T) {
	p1 := newProduct("p1", "50")
	p2 := newProduct("p2", "20")

	s, err := Add(State{}, p1, 2, pricing.NewSnapshot("old", 5, p1.Price))
	require.NoError(t, err)
	s, err = Add(s, p2, 1, nil)
	require.NoError(t, err)

	discounts := []discount.Discount{
		runningDiscount("all", 20),
		runningDiscount("p1-only", 50, "p1"),
	}
	refreshed := Refresh(s, discounts, now)

	require.NotNil(t, refreshed.Lines[0].Discount)
	assert.Equal(t, "p1-only", refreshed.Lines[0].Discount.DiscountID)
	assert.True(t, decimal.NewFromInt(25).Equal(refreshed.Lines[0].UnitPrice()))
	require.NotNil(t, refreshed.Lines[1].Discount)
	assert.Equal(t, "all", refreshed.Lines[1].Discount.DiscountID)

	cleared := Refresh(s, nil, now)
	assert.Nil(t, cleared.Lines[0].Discount)
	assert.Equal(t, "old", s.Lines[0].Discount.DiscountID, "input snapshot is kept")
}

func TestQuote(t *testing.T) {
	calc := pricing.NewCalculator(pricing.DefaultConfig())
	p := newProduct("p1", "50")

	totals, err := Quote(State{}, calc)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(totals.TotalPrice))

	s, err := Add(State{}, p, 2, SnapshotFor([]discount.Discount{runningDiscount("d", 10)}, p.ID, p.Price, now))
	require.NoError(t, err)

	totals, err = Quote(s, calc)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(90).Equal(totals.ItemsPrice))
	assert.True(t, decimal.NewFromInt(10).Equal(totals.ShippingPrice))
	assert.True(t, decimal.RequireFromString("13.50").Equal(totals.TaxPrice))
	assert.True(t, decimal.RequireFromString("113.50").Equal(totals.TotalPrice))
}
