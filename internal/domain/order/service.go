package order

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Parzival048/ecomreact/internal/domain/cart"
	"github.com/Parzival048/ecomreact/internal/domain/discount"
	"github.com/Parzival048/ecomreact/internal/domain/pricing"
	"github.com/Parzival048/ecomreact/internal/domain/product"
)

// ActiveDiscounts lists the discounts running now.
type ActiveDiscounts interface {
	Active(ctx context.Context) ([]discount.Discount, error)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	Items           []OrderItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
}

// Viewer identifies who is reading an order.
type Viewer struct {
	CustomerID string
	Admin      bool
}

// Service encapsulates order placement and fulfilment.
type Service struct {
	products  product.Repository
	discounts ActiveDiscounts
	orders    Repository
	calc      *pricing.Calculator
	metrics   *Metrics
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
// metrics may be nil.
func NewService(
	products product.Repository,
	discounts ActiveDiscounts,
	orders Repository,
	calc *pricing.Calculator,
	metrics *Metrics,
) *Service {
	return &Service{
		products:  products,
		discounts: discounts,
		orders:    orders,
		calc:      calc,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Place validates the request, loads products and running discounts,
// snapshots the best discount per line, checks stock, prices the order and
// persists it together with the stock decrement.
func (s *Service) Place(ctx context.Context, customerID string, req PlaceOrderRequest) (*Order, error) {
	o, err := s.place(ctx, customerID, req)
	if err != nil {
		s.metrics.recordRejected(ctx, rejectReason(err))
		return nil, err
	}
	s.metrics.recordPlaced(ctx, o)
	return o, nil
}

func (s *Service) place(ctx context.Context, customerID string, req PlaceOrderRequest) (*Order, error) {
	items, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	var (
		fetched   []product.Product
		discounts []discount.Discount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		fetched, err = s.products.GetByIDs(gctx, ids)
		if err != nil {
			return errors.Wrap(err, "get products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		discounts, err = s.discounts.Active(gctx)
		if err != nil {
			return errors.Wrap(err, "active discounts")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	now := s.now()
	var state cart.State
	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		if !p.InStock(item.Quantity) {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Requested: item.Quantity,
				Available: p.CountInStock,
			}
		}
		snap := cart.SnapshotFor(discounts, p.ID, p.Price, now)
		if state, err = cart.Add(state, p, item.Quantity, snap); err != nil {
			return nil, err
		}
	}

	totals, err := cart.Quote(state, s.calc)
	if err != nil {
		return nil, errors.Wrap(err, "price order")
	}

	o := &Order{
		ID:              uuid.New().String(),
		CustomerID:      customerID,
		Lines:           state.Lines,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Totals:          totals,
		CreatedAt:       now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			return nil, stockErr
		}
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// mergeItems rejects empty or non-positive requests and folds repeated
// products into one item, keeping first-seen order.
func mergeItems(items []OrderItem) ([]OrderItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	out := make([]OrderItem, 0, len(items))
	seen := make(map[string]int, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		if i, ok := seen[item.ProductID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		seen[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out, nil
}

func rejectReason(err error) string {
	var (
		pnf   *ProductNotFoundError
		stock *InsufficientStockError
	)
	switch {
	case errors.Is(err, ErrEmptyItems):
		return "empty"
	case errors.Is(err, ErrInvalidQuantity):
		return "quantity"
	case errors.As(err, &pnf):
		return "product_not_found"
	case errors.As(err, &stock):
		return "stock"
	default:
		return "error"
	}
}

// Get returns an order visible to v. Orders of other customers are reported
// as not found unless v is an admin.
func (s *Service) Get(ctx context.Context, id string, v Viewer) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	if !v.Admin && o.CustomerID != v.CustomerID {
		return nil, ErrNotFound
	}
	return o, nil
}

// ListMine returns the orders of customerID, newest first.
func (s *Service) ListMine(ctx context.Context, customerID string) ([]Order, error) {
	list, err := s.orders.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list customer orders")
	}
	return list, nil
}

// List returns every order, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	list, err := s.orders.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return list, nil
}

// MarkPaid records the payment confirmation for an order owned by v.
func (s *Service) MarkPaid(ctx context.Context, id string, v Viewer, result PaymentResult) (*Order, error) {
	o, err := s.Get(ctx, id, v)
	if err != nil {
		return nil, err
	}
	if o.IsPaid {
		return nil, ErrAlreadyPaid
	}
	now := s.now()
	if err := s.orders.MarkPaid(ctx, id, result, now); err != nil {
		return nil, errors.Wrap(err, "mark paid")
	}
	o.IsPaid = true
	o.PaidAt = &now
	o.PaymentResult = &result
	return o, nil
}

// MarkDelivered flags an order as delivered.
func (s *Service) MarkDelivered(ctx context.Context, id string) (*Order, error) {
	o, err := s.Get(ctx, id, Viewer{Admin: true})
	if err != nil {
		return nil, err
	}
	if o.IsDelivered {
		return nil, ErrAlreadyDelivered
	}
	now := s.now()
	if err := s.orders.MarkDelivered(ctx, id, now); err != nil {
		return nil, errors.Wrap(err, "mark delivered")
	}
	o.IsDelivered = true
	o.DeliveredAt = &now
	return o, nil
}

// Export writes every order as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	list, err := s.List(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Order ID", "User", "Date", "Total", "Paid", "Delivered"}); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, o := range list {
		if err := cw.Write([]string{
			o.ID,
			o.CustomerID,
			o.CreatedAt.UTC().Format(time.DateOnly),
			o.Totals.TotalPrice.StringFixed(2),
			yesNo(o.IsPaid),
			yesNo(o.IsDelivered),
		}); err != nil {
			return errors.Wrapf(err, "write order %s", o.ID)
		}
	}
	cw.Flush()
	return cw.Error()
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
