package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Parzival048/ecomreact/internal/domain/auth"
	"github.com/Parzival048/ecomreact/internal/domain/cart"
	"github.com/Parzival048/ecomreact/internal/domain/discount"
	"github.com/Parzival048/ecomreact/internal/domain/order"
	"github.com/Parzival048/ecomreact/internal/domain/pricing"
	"github.com/Parzival048/ecomreact/internal/domain/product"
	"github.com/Parzival048/ecomreact/pkg/httpmiddleware"
)

// statusOf maps domain errors to HTTP status codes. Unknown errors are 500.
func statusOf(err error) int {
	var (
		validation validator.ValidationErrors
		notFound   *order.ProductNotFoundError
		stock      *order.InsufficientStockError
	)
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errBadRequest),
		errors.As(err, &validation),
		errors.Is(err, discount.ErrInvalidDiscount),
		errors.Is(err, product.ErrInvalidProduct),
		errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrInvalidCartLine),
		errors.As(err, &notFound),
		errors.As(err, &stock):
		return http.StatusUnprocessableEntity
	case errors.Is(err, discount.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrAlreadyPaid),
		errors.Is(err, order.ErrAlreadyDelivered):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as {"code","message"}. Server errors are logged and
// their details are not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		msg = "internal error"
	}
	httpmiddleware.WriteError(w, status, msg)
}
