package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/Parzival048/ecomreact/internal/domain/cart"
	"github.com/Parzival048/ecomreact/internal/domain/product"
)

// ListProducts returns the catalog with the discount applicable to each
// product right now.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	products, err := h.products.List(ctx)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}
	active, err := h.discounts.Active(ctx)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "active discounts"))
		return
	}

	now := h.now()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range products {
			h.writeProduct(e, p, cart.SnapshotFor(active, p.ID, p.Price, now))
		}
		e.ArrEnd()
	})
}

// GetProduct returns one product with its current discount.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.products.GetByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	active, err := h.discounts.Active(ctx)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "active discounts"))
		return
	}

	snap := cart.SnapshotFor(active, p.ID, p.Price, h.now())
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.writeProduct(e, *p, snap)
	})
}

type productBody struct {
	Name         string `validate:"required,max=200"`
	Description  string `validate:"max=4000"`
	Brand        string `validate:"max=200"`
	Category     string `validate:"max=200"`
	Image        string `validate:"max=2048"`
	CountInStock int    `validate:"min=0"`
}

// UpsertProduct creates or replaces the product at {id}.
func (h *Handler) UpsertProduct(w http.ResponseWriter, r *http.Request) {
	p := product.Product{ID: chi.URLParam(r, "id")}
	var body productBody
	err := readBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			body.Name, err = d.Str()
		case "description":
			body.Description, err = d.Str()
		case "brand":
			body.Brand, err = d.Str()
		case "category":
			body.Category, err = d.Str()
		case "image":
			body.Image, err = d.Str()
		case "price":
			p.Price, err = readDecimal(d)
		case "countInStock":
			body.CountInStock, err = d.Int()
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, r, err)
		return
	}

	p.Name = body.Name
	p.Description = body.Description
	p.Brand = body.Brand
	p.Category = body.Category
	p.Image = body.Image
	p.CountInStock = body.CountInStock
	if err := p.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.products.Upsert(r.Context(), &p); err != nil {
		writeError(w, r, errors.Wrap(err, "upsert product"))
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.writeProduct(e, p, nil)
	})
}
