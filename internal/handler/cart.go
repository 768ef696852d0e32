package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/Parzival048/ecomreact/internal/domain/cart"
	"github.com/Parzival048/ecomreact/internal/domain/discount"
	"github.com/Parzival048/ecomreact/internal/domain/order"
	"github.com/Parzival048/ecomreact/internal/domain/pricing"
)

type quoteItem struct {
	ProductID string `validate:"required"`
	Qty       int
	Discount  *pricing.Snapshot
}

// QuoteCart prices client cart lines. Catalog data comes from the product
// store. Line snapshots are kept as sent unless refresh is set, in which case
// every line is re-snapshotted against the discounts running now.
func (h *Handler) QuoteCart(w http.ResponseWriter, r *http.Request) {
	var (
		refresh bool
		items   []quoteItem
	)
	err := readBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "refresh":
			refresh, err = d.Bool()
		case "items":
			err = d.Arr(func(d *jx.Decoder) error {
				var it quoteItem
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "productId":
						it.ProductID, err = d.Str()
					case "qty":
						it.Qty, err = d.Int()
					case "discount":
						it.Discount, err = readSnapshot(d)
					default:
						err = d.Skip()
					}
					return fieldErr(err, key)
				}); err != nil {
					return err
				}
				items = append(items, it)
				return nil
			})
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	for _, it := range items {
		if err := h.validate.Struct(it); err != nil {
			writeError(w, r, err)
			return
		}
	}

	ctx := r.Context()
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products, err := h.products.GetByIDs(ctx, ids)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "get products"))
		return
	}
	byID := make(map[string]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	var state cart.State
	for _, it := range items {
		i, ok := byID[it.ProductID]
		if !ok {
			writeError(w, r, &order.ProductNotFoundError{ProductID: it.ProductID})
			return
		}
		if state, err = cart.Add(state, products[i], it.Qty, it.Discount); err != nil {
			writeError(w, r, err)
			return
		}
	}

	if refresh {
		var active []discount.Discount
		if active, err = h.discounts.Active(ctx); err != nil {
			writeError(w, r, errors.Wrap(err, "active discounts"))
			return
		}
		state = cart.Refresh(state, active, h.now())
	}

	totals, err := cart.Quote(state, h.calc)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.ArrStart()
		for _, l := range state.Lines {
			h.writeLine(e, l)
		}
		e.ArrEnd()
		writeTotals(e, totals)
		e.ObjEnd()
	})
}
