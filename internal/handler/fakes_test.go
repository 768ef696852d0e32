package handler

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Parzival048/ecomreact/internal/domain/auth"
	"github.com/Parzival048/ecomreact/internal/domain/discount"
	"github.com/Parzival048/ecomreact/internal/domain/order"
	"github.com/Parzival048/ecomreact/internal/domain/product"
)

// testNow is close to the wall clock because the order service snapshots
// discounts at time.Now.
var testNow = time.Now().UTC().Truncate(time.Second)

type memProducts struct {
	mu   sync.Mutex
	byID map[string]product.Product
}

func newMemProducts(products ...product.Product) *memProducts {
	m := &memProducts{byID: map[string]product.Product{}}
	for _, p := range products {
		m.byID[p.ID] = p
	}
	return m
}

func (m *memProducts) List(context.Context) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]product.Product, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b product.Product) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *memProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *memProducts) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memProducts) Upsert(_ context.Context, p *product.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.UpdatedAt = testNow
	m.byID[p.ID] = *p
	return nil
}

// fakeDiscounts evaluates an in-memory list at testNow.
type fakeDiscounts struct {
	mu   sync.Mutex
	list []discount.Discount
	err  error
}

func (f *fakeDiscounts) Create(_ context.Context, in discount.Input, createdBy string) (*discount.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := discount.Discount{
		ID:                 uuid.NewString(),
		Name:               in.Name,
		Description:        in.Description,
		Percentage:         in.Percentage,
		StartDate:          testNow,
		EndDate:            in.EndDate,
		IsActive:           true,
		ApplyToAllProducts: in.ApplyToAllProducts,
		ApplicableProducts: in.ApplicableProducts,
		FeaturedImage:      in.FeaturedImage,
		CreatedBy:          createdBy,
		CreatedAt:          testNow,
		UpdatedAt:          testNow,
	}
	if in.StartDate != nil {
		d.StartDate = *in.StartDate
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	if err := discount.Validate(d); err != nil {
		return nil, err
	}
	f.list = append(f.list, d)
	return &d, nil
}

func (f *fakeDiscounts) Update(_ context.Context, id string, patch discount.Patch) (*discount.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := slices.IndexFunc(f.list, func(d discount.Discount) bool { return d.ID == id })
	if i < 0 {
		return nil, discount.ErrNotFound
	}
	d := f.list[i]
	if patch.Percentage != nil {
		d.Percentage = *patch.Percentage
	}
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.IsActive != nil {
		d.IsActive = *patch.IsActive
	}
	if patch.EndDate != nil {
		d.EndDate = *patch.EndDate
	}
	if err := discount.Validate(d); err != nil {
		return nil, err
	}
	f.list[i] = d
	return &d, nil
}

func (f *fakeDiscounts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.list)
	f.list = slices.DeleteFunc(f.list, func(d discount.Discount) bool { return d.ID == id })
	if len(f.list) == n {
		return discount.ErrNotFound
	}
	return nil
}

func (f *fakeDiscounts) Get(_ context.Context, id string) (*discount.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.list {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, discount.ErrNotFound
}

func (f *fakeDiscounts) List(context.Context) ([]discount.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.list), f.err
}

func (f *fakeDiscounts) Active(context.Context) ([]discount.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return discount.Active(f.list, testNow), nil
}

func (f *fakeDiscounts) Featured(ctx context.Context) (discount.Discount, bool, error) {
	active, err := f.Active(ctx)
	if err != nil || len(active) == 0 {
		return discount.Discount{}, false, err
	}
	return active[0], true, nil
}

type memOrders struct {
	mu       sync.Mutex
	products *memProducts
	orders   []order.Order
}

func (m *memOrders) Create(_ context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products.mu.Lock()
	defer m.products.mu.Unlock()
	for _, l := range o.Lines {
		p := m.products.byID[l.ProductID]
		if p.CountInStock < l.Qty {
			return &order.InsufficientStockError{ProductID: p.ID, Requested: l.Qty, Available: p.CountInStock}
		}
		p.CountInStock -= l.Qty
		m.products.byID[p.ID] = p
	}
	m.orders = append(m.orders, *o)
	return nil
}

func (m *memOrders) GetByID(_ context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *memOrders) ListByCustomer(_ context.Context, customerID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []order.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOrders) List(context.Context) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.orders), nil
}

func (m *memOrders) update(id string, fn func(o *order.Order) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orders {
		if m.orders[i].ID == id {
			return fn(&m.orders[i])
		}
	}
	return order.ErrNotFound
}

func (m *memOrders) MarkPaid(_ context.Context, id string, result order.PaymentResult, at time.Time) error {
	return m.update(id, func(o *order.Order) error {
		if o.IsPaid {
			return order.ErrAlreadyPaid
		}
		o.IsPaid = true
		o.PaidAt = &at
		o.PaymentResult = &result
		return nil
	})
}

func (m *memOrders) MarkDelivered(_ context.Context, id string, at time.Time) error {
	return m.update(id, func(o *order.Order) error {
		if o.IsDelivered {
			return order.ErrAlreadyDelivered
		}
		o.IsDelivered = true
		o.DeliveredAt = &at
		return nil
	})
}

type memKeys struct {
	byHash map[string]auth.APIKeyInfo
}

func (m *memKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return &info, nil
}

func (m *memKeys) Upsert(_ context.Context, info *auth.APIKeyInfo) error {
	m.byHash[info.KeyHash] = *info
	return nil
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
