package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Parzival048/ecomreact/internal/domain/order"
	"github.com/Parzival048/ecomreact/internal/domain/pricing"
)

const orderColumns = `id, customer_id, shipping_address, shipping_city, shipping_postal_code, shipping_country,
	payment_method, items_price, shipping_price, tax_price, total_price,
	is_paid, paid_at, payment_id, payment_status, payment_update_time, payment_email,
	is_delivered, delivered_at, created_at`

const (
	insertOrderSQL = `INSERT INTO orders (id, customer_id, shipping_address, shipping_city,
			shipping_postal_code, shipping_country, payment_method,
			items_price, shipping_price, tax_price, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, position, product_id, name, image, price, qty,
			discount_id, discount_percentage, discounted_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	decrementStockSQL = `UPDATE products SET count_in_stock = count_in_stock - $2, updated_at = now()
		WHERE id = $1 AND count_in_stock >= $2`

	stockSQL = `SELECT count_in_stock FROM products WHERE id = $1`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`

	listCustomerOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE customer_id = $1 ORDER BY created_at DESC, id`

	listOrderItemsSQL = `SELECT order_id, product_id, name, image, price, qty,
			discount_id, discount_percentage, discounted_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`

	markPaidSQL = `UPDATE orders SET is_paid = TRUE, paid_at = $2,
			payment_id = $3, payment_status = $4, payment_update_time = $5, payment_email = $6
		WHERE id = $1 AND NOT is_paid`

	markDeliveredSQL = `UPDATE orders SET is_delivered = TRUE, delivered_at = $2
		WHERE id = $1 AND NOT is_delivered`

	orderExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order with its lines and takes the ordered units out
// of stock. Nothing is written when any product is short.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		a := o.ShippingAddress
		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.CustomerID, a.Address, a.City, a.PostalCode, a.Country, o.PaymentMethod,
			o.Totals.ItemsPrice, o.Totals.ShippingPrice, o.Totals.TaxPrice, o.Totals.TotalPrice,
			o.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		batch := &pgx.Batch{}
		for i, l := range o.Lines {
			batch.Queue(decrementStockSQL, l.ProductID, l.Qty)

			var (
				discountID *string
				pct        *int
				price      decimal.NullDecimal
			)
			if l.Discount != nil {
				discountID = &l.Discount.DiscountID
				pct = &l.Discount.Percentage
				price = decimal.NewNullDecimal(l.Discount.Price)
			}
			batch.Queue(insertOrderItemSQL,
				o.ID, i, l.ProductID, l.Name, l.Image, l.Price, l.Qty, discountID, pct, price,
			)
		}

		short, err := execOrderBatch(tx.SendBatch(ctx, batch), o.Lines)
		if err != nil {
			return fmt.Errorf("creating order %q lines: %w", o.ID, err)
		}
		if short != nil {
			// The batch is closed, the transaction is still usable.
			if err := tx.QueryRow(ctx, stockSQL, short.ProductID).Scan(&short.Available); err != nil {
				return fmt.Errorf("reading stock of %q: %w", short.ProductID, err)
			}
			return short
		}
		return nil
	})
}

// execOrderBatch reads the results queued by Create and closes br. It stops at
// the first product without enough stock.
func execOrderBatch(br pgx.BatchResults, lines []pricing.Line) (short *order.InsufficientStockError, err error) {
	defer func() {
		if cerr := br.Close(); err == nil && short == nil && cerr != nil {
			err = cerr
		}
	}()
	for _, l := range lines {
		tag, err := br.Exec()
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return &order.InsufficientStockError{ProductID: l.ProductID, Requested: l.Qty}, nil
		}
		if _, err := br.Exec(); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// GetByID returns an order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	list := []order.Order{o}
	if err := r.attachLines(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListByCustomer returns the orders of a customer, newest first.
func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string) ([]order.Order, error) {
	return r.list(ctx, listCustomerOrdersSQL, customerID)
}

// List returns every order, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	return r.list(ctx, listOrdersSQL)
}

func (r *OrderRepository) list(ctx context.Context, sql string, args ...any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachLines(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkPaid stores the payment confirmation. Only an unpaid order is updated.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, res order.PaymentResult, at time.Time) error {
	tag, err := r.pool.Exec(ctx, markPaidSQL, id, at, res.ID, res.Status, res.UpdateTime, res.EmailAddress)
	if err != nil {
		return fmt.Errorf("marking order %q paid: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.unchanged(ctx, id, order.ErrAlreadyPaid)
	}
	return nil
}

// MarkDelivered flags the order as delivered. Only an undelivered order is
// updated.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, markDeliveredSQL, id, at)
	if err != nil {
		return fmt.Errorf("marking order %q delivered: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.unchanged(ctx, id, order.ErrAlreadyDelivered)
	}
	return nil
}

// unchanged explains a conditional update that matched no row: either the
// order does not exist or its state already changed.
func (r *OrderRepository) unchanged(ctx context.Context, id string, stateErr error) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, orderExistsSQL, id).Scan(&exists); err != nil {
		return fmt.Errorf("checking order %q: %w", id, err)
	}
	if !exists {
		return order.ErrNotFound
	}
	return stateErr
}

func (r *OrderRepository) attachLines(ctx context.Context, list []order.Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i, o := range list {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.pool.Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID    string
			l          pricing.Line
			discountID *string
			pct        *int
			price      decimal.NullDecimal
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.Name, &l.Image, &l.Price, &l.Qty,
			&discountID, &pct, &price); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		if discountID != nil && pct != nil && price.Valid {
			l.Discount = &pricing.Snapshot{DiscountID: *discountID, Percentage: *pct, Price: price.Decimal}
		}
		i := index[orderID]
		list[i].Lines = append(list[i].Lines, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                                  order.Order
		payID, payStatus, payTime, payMail *string
	)
	err := row.Scan(
		&o.ID, &o.CustomerID,
		&o.ShippingAddress.Address, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.PaymentMethod,
		&o.Totals.ItemsPrice, &o.Totals.ShippingPrice, &o.Totals.TaxPrice, &o.Totals.TotalPrice,
		&o.IsPaid, &o.PaidAt, &payID, &payStatus, &payTime, &payMail,
		&o.IsDelivered, &o.DeliveredAt, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	if payID != nil {
		o.PaymentResult = &order.PaymentResult{
			ID:           *payID,
			Status:       deref(payStatus),
			UpdateTime:   deref(payTime),
			EmailAddress: deref(payMail),
		}
	}
	return o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
