package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/Parzival048/ecomreact/internal/domain/auth"
	"github.com/Parzival048/ecomreact/internal/domain/order"
)

type shippingBody struct {
	Address    string `validate:"required,max=500"`
	City       string `validate:"required,max=200"`
	PostalCode string `validate:"required,max=20"`
	Country    string `validate:"required,max=100"`
}

type placeOrderBody struct {
	Items           []order.OrderItem
	ShippingAddress shippingBody
	PaymentMethod   string `validate:"required,max=50"`
}

// PlaceOrder prices and stores an order for the calling key's owner.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	apiKey, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var b placeOrderBody
	err = readBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "orderItems", "items":
			err = d.Arr(func(d *jx.Decoder) error {
				var it order.OrderItem
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "productId", "product":
						it.ProductID, err = d.Str()
					case "qty", "quantity":
						it.Quantity, err = d.Int()
					default:
						err = d.Skip()
					}
					return fieldErr(err, key)
				}); err != nil {
					return err
				}
				b.Items = append(b.Items, it)
				return nil
			})
		case "shippingAddress":
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "address":
					b.ShippingAddress.Address, err = d.Str()
				case "city":
					b.ShippingAddress.City, err = d.Str()
				case "postalCode":
					b.ShippingAddress.PostalCode, err = d.Str()
				case "country":
					b.ShippingAddress.Country, err = d.Str()
				default:
					err = d.Skip()
				}
				return fieldErr(err, key)
			})
		case "paymentMethod":
			b.PaymentMethod, err = d.Str()
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Struct(b); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.Place(r.Context(), apiKey.OwnerID, order.PlaceOrderRequest{
		Items:           b.Items,
		ShippingAddress: order.ShippingAddress(b.ShippingAddress),
		PaymentMethod:   b.PaymentMethod,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("total", o.Totals.TotalPrice.StringFixed(2)),
	)
	h.respondOrder(w, http.StatusCreated, o)
}

func viewer(key *auth.APIKeyInfo) order.Viewer {
	return order.Viewer{CustomerID: key.OwnerID, Admin: key.IsAdmin()}
}

// GetOrder returns an order visible to the caller.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	apiKey, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"), viewer(apiKey))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondOrder(w, http.StatusOK, o)
}

// MyOrders lists the caller's orders.
func (h *Handler) MyOrders(w http.ResponseWriter, r *http.Request) {
	apiKey, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.orders.ListMine(r.Context(), apiKey.OwnerID)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list my orders"))
		return
	}
	h.respondOrders(w, list)
}

// ListOrders lists every order.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list orders"))
		return
	}
	h.respondOrders(w, list)
}

// PayOrder records the payment provider's confirmation.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	apiKey, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var res order.PaymentResult
	err = readBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			res.ID, err = d.Str()
		case "status":
			res.Status, err = d.Str()
		case "update_time", "updateTime":
			res.UpdateTime, err = d.Str()
		case "email_address", "emailAddress":
			res.EmailAddress, err = d.Str()
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Var(res.ID, "required"); err != nil {
		writeError(w, r, errors.Wrap(errBadRequest, "payment id is required"))
		return
	}

	o, err := h.orders.MarkPaid(r.Context(), chi.URLParam(r, "id"), viewer(apiKey), res)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondOrder(w, http.StatusOK, o)
}

// DeliverOrder marks an order as delivered.
func (h *Handler) DeliverOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.MarkDelivered(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondOrder(w, http.StatusOK, o)
}

// ExportOrders streams every order as CSV, gzip-compressed when the client
// accepts it.
func (h *Handler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	name := "orders-" + h.now().UTC().Format(time.DateOnly) + ".csv"
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)

	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		if err := h.orders.Export(r.Context(), w); err != nil {
			writeError(w, r, errors.Wrap(err, "export orders"))
		}
		return
	}

	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Add("Vary", "Accept-Encoding")
	zw := pgzip.NewWriter(w)
	if err := h.orders.Export(r.Context(), zw); err != nil {
		zctx.From(r.Context()).Error("Export orders", zap.Error(err))
	}
	if err := zw.Close(); err != nil {
		zctx.From(r.Context()).Error("Close gzip writer", zap.Error(err))
	}
}

func (h *Handler) respondOrder(w http.ResponseWriter, status int, o *order.Order) {
	writeJSON(w, status, func(e *jx.Encoder) {
		h.writeOrder(e, o)
	})
}

func (h *Handler) respondOrders(w http.ResponseWriter, list []order.Order) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range list {
			h.writeOrder(e, &list[i])
		}
		e.ArrEnd()
	})
}
