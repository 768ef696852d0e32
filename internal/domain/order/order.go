package order

import (
	"context"
	"time"

	"github.com/Parzival048/ecomreact/internal/domain/pricing"
)

// Order is a placed customer order. Lines carry the discount snapshot taken
// at placement and never change afterwards.
type Order struct {
	ID              string
	CustomerID      string
	Lines           []pricing.Line
	ShippingAddress ShippingAddress
	PaymentMethod   string
	Totals          pricing.Totals
	IsPaid          bool
	PaidAt          *time.Time
	PaymentResult   *PaymentResult
	IsDelivered     bool
	DeliveredAt     *time.Time
	CreatedAt       time.Time
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

// PaymentResult is the payment provider's confirmation.
type PaymentResult struct {
	ID           string
	Status       string
	UpdateTime   string
	EmailAddress string
}

// OrderItem is a requested product and quantity.
type OrderItem struct {
	ProductID string
	Quantity  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the order and decrements stock for every line in one
	// transaction. It returns *InsufficientStockError when a product no
	// longer has enough units.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	List(ctx context.Context) ([]Order, error)
	// MarkPaid updates only an unpaid order and returns ErrAlreadyPaid
	// otherwise, so concurrent payments cannot both succeed.
	MarkPaid(ctx context.Context, id string, result PaymentResult, at time.Time) error
	// MarkDelivered returns ErrAlreadyDelivered for a delivered order.
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}
