package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_Validate(t *testing.T) {
	valid := Product{ID: "p1", Name: "Mouse", Price: decimal.RequireFromString("24.99"), CountInStock: 3}

	tests := []struct {
		name    string
		mutate  func(p *Product)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Product) {}},
		{name: "free product", mutate: func(p *Product) { p.Price = decimal.Zero }},
		{name: "missing id", mutate: func(p *Product) { p.ID = "" }, wantErr: true},
		{name: "missing name", mutate: func(p *Product) { p.Name = "" }, wantErr: true},
		{name: "negative price", mutate: func(p *Product) { p.Price = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "negative stock", mutate: func(p *Product) { p.CountInStock = -1 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidProduct)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestProduct_InStock(t *testing.T) {
	p := Product{ID: "p1", CountInStock: 2}
	assert.True(t, p.InStock(2))
	assert.False(t, p.InStock(3))
}
