package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/Parzival048/ecomreact/internal/domain/discount"
)

// discountBody is the create and update payload. Absent fields stay nil.
type discountBody struct {
	Name               *string `validate:"omitempty,max=200"`
	Description        *string `validate:"omitempty,max=2000"`
	Percentage         *int    `validate:"omitempty,min=1,max=99"`
	StartDate          *time.Time
	EndDate            *time.Time
	IsActive           *bool
	ApplyToAllProducts *bool
	ApplicableProducts []string `validate:"omitempty,dive,required"`
	FeaturedImage      *string  `validate:"omitempty,max=2048"`
}

func (h *Handler) readDiscount(r *http.Request) (discountBody, error) {
	var b discountBody
	err := readBody(r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			b.Name, err = optStr(d)
		case "description":
			b.Description, err = optStr(d)
		case "discountPercentage":
			var v int
			v, err = d.Int()
			b.Percentage = &v
		case "startDate":
			var v time.Time
			v, err = readTime(d)
			b.StartDate = &v
		case "endDate":
			var v time.Time
			v, err = readTime(d)
			b.EndDate = &v
		case "isActive":
			var v bool
			v, err = d.Bool()
			b.IsActive = &v
		case "applyToAllProducts":
			var v bool
			v, err = d.Bool()
			b.ApplyToAllProducts = &v
		case "applicableProducts":
			b.ApplicableProducts, err = readStrings(d)
		case "featuredImage":
			b.FeaturedImage, err = optStr(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		return b, err
	}
	if err := h.validate.Struct(b); err != nil {
		return b, err
	}
	return b, nil
}

func optStr(d *jx.Decoder) (*string, error) {
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// CreateDiscount creates a discount owned by the calling key.
func (h *Handler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	apiKey, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.readDiscount(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if b.Percentage == nil || b.EndDate == nil {
		writeError(w, r, errors.Wrap(errBadRequest, "discountPercentage and endDate are required"))
		return
	}

	d, err := h.discounts.Create(r.Context(), discount.Input{
		Name:               deref(b.Name),
		Description:        deref(b.Description),
		Percentage:         *b.Percentage,
		StartDate:          b.StartDate,
		EndDate:            *b.EndDate,
		IsActive:           b.IsActive,
		ApplyToAllProducts: deref(b.ApplyToAllProducts),
		ApplicableProducts: b.ApplicableProducts,
		FeaturedImage:      deref(b.FeaturedImage),
	}, apiKey.OwnerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		writeDiscount(e, *d)
	})
}

// UpdateDiscount changes only the fields present in the body.
func (h *Handler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	b, err := h.readDiscount(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.discounts.Update(r.Context(), chi.URLParam(r, "id"), discount.Patch{
		Name:               b.Name,
		Description:        b.Description,
		Percentage:         b.Percentage,
		StartDate:          b.StartDate,
		EndDate:            b.EndDate,
		IsActive:           b.IsActive,
		ApplyToAllProducts: b.ApplyToAllProducts,
		ApplicableProducts: b.ApplicableProducts,
		FeaturedImage:      b.FeaturedImage,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		writeDiscount(e, *d)
	})
}

// DeleteDiscount removes a discount permanently.
func (h *Handler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	if err := h.discounts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("message")
		e.Str("Discount removed")
		e.ObjEnd()
	})
}

// GetDiscount returns one discount.
func (h *Handler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	d, err := h.discounts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		writeDiscount(e, *d)
	})
}

// ListDiscounts returns every discount, newest first.
func (h *Handler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.discounts.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list discounts"))
		return
	}
	writeDiscounts(w, list)
}

// ActiveDiscounts returns the discounts running now, best first.
func (h *Handler) ActiveDiscounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.discounts.Active(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "active discounts"))
		return
	}
	writeDiscounts(w, list)
}

// FeaturedDiscount returns the best running discount, or null.
func (h *Handler) FeaturedDiscount(w http.ResponseWriter, r *http.Request) {
	d, ok, err := h.discounts.Featured(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "featured discount"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		if !ok {
			e.Null()
			return
		}
		writeDiscount(e, d)
	})
}

func writeDiscounts(w http.ResponseWriter, list []discount.Discount) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, d := range list {
			writeDiscount(e, d)
		}
		e.ArrEnd()
	})
}
