// Package handler implements the shop HTTP API on chi with jx encoded
// bodies.
package handler

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Parzival048/ecomreact/internal/domain/discount"
	"github.com/Parzival048/ecomreact/internal/domain/order"
	"github.com/Parzival048/ecomreact/internal/domain/pricing"
	"github.com/Parzival048/ecomreact/internal/domain/product"
)

// DiscountService is the discount administration used by the API.
type DiscountService interface {
	Create(ctx context.Context, in discount.Input, createdBy string) (*discount.Discount, error)
	Update(ctx context.Context, id string, patch discount.Patch) (*discount.Discount, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*discount.Discount, error)
	List(ctx context.Context) ([]discount.Discount, error)
	Active(ctx context.Context) ([]discount.Discount, error)
	Featured(ctx context.Context) (discount.Discount, bool, error)
}

// OrderService is the order lifecycle used by the API.
type OrderService interface {
	Place(ctx context.Context, customerID string, req order.PlaceOrderRequest) (*order.Order, error)
	Get(ctx context.Context, id string, v order.Viewer) (*order.Order, error)
	ListMine(ctx context.Context, customerID string) ([]order.Order, error)
	List(ctx context.Context) ([]order.Order, error)
	MarkPaid(ctx context.Context, id string, v order.Viewer, result order.PaymentResult) (*order.Order, error)
	MarkDelivered(ctx context.Context, id string) (*order.Order, error)
	Export(ctx context.Context, w io.Writer) error
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ImageBaseURL is prepended to relative image paths in responses.
	// When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler serves the catalog, discount, cart and order endpoints.
type Handler struct {
	products     product.Repository
	discounts    DiscountService
	orders       OrderService
	calc         *pricing.Calculator
	validate     *validator.Validate
	imageBaseURL string
	now          func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products product.Repository,
	discounts DiscountService,
	orders OrderService,
	calc *pricing.Calculator,
) *Handler {
	return &Handler{
		products:     products,
		discounts:    discounts,
		orders:       orders,
		calc:         calc,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		imageBaseURL: strings.TrimSuffix(cfg.ImageBaseURL, "/"),
		now:          time.Now,
	}
}

// imageURL prefixes relative image paths with the configured base URL.
func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" || strings.Contains(path, "://") {
		return path
	}
	return h.imageBaseURL + "/" + strings.TrimPrefix(path, "/")
}
