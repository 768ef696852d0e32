package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/Parzival048/ecomreact/internal/domain/discount"
	"github.com/Parzival048/ecomreact/internal/domain/order"
	"github.com/Parzival048/ecomreact/internal/domain/pricing"
	"github.com/Parzival048/ecomreact/internal/domain/product"
)

const maxBodyBytes = 1 << 20

// errBadRequest marks malformed request bodies.
var errBadRequest = errors.New("bad request")

func badRequest(err error) error {
	return errors.Wrap(errBadRequest, err.Error())
}

// fieldErr prefixes a decode error with its field name.
func fieldErr(err error, key string) error {
	if err != nil {
		return errors.Wrap(err, key)
	}
	return nil
}

// readBody decodes the request body object, calling field for every key.
func readBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return badRequest(err)
	}
	if err := jx.DecodeBytes(b).Obj(field); err != nil {
		return badRequest(err)
	}
	return nil
}

// writeJSON encodes one response value with fn.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func readDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	if d.Next() == jx.String {
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	}
	n, err := d.Num()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return decimal.NewFromString(string(n))
}

func readTime(d *jx.Decoder) (time.Time, error) {
	s, err := d.Str()
	if err != nil {
		return time.Time{}, err
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func readStrings(d *jx.Decoder) ([]string, error) {
	out := []string{}
	err := d.Arr(func(d *jx.Decoder) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func writeMoney(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.StringFixed(2)))
}

func writeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func writeOptTime(e *jx.Encoder, t *time.Time) {
	if t == nil {
		e.Null()
		return
	}
	writeTime(e, *t)
}

func writeSnapshot(e *jx.Encoder, s *pricing.Snapshot) {
	if s == nil {
		e.Null()
		return
	}
	e.ObjStart()
	e.FieldStart("discountId")
	e.Str(s.DiscountID)
	e.FieldStart("discountPercentage")
	e.Int(s.Percentage)
	e.FieldStart("discountedPrice")
	writeMoney(e, s.Price)
	e.ObjEnd()
}

func readSnapshot(d *jx.Decoder) (*pricing.Snapshot, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	var s pricing.Snapshot
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "discountId":
			s.DiscountID, err = d.Str()
		case "discountPercentage":
			s.Percentage, err = d.Int()
		case "discountedPrice":
			s.Price, err = readDecimal(d)
		default:
			err = d.Skip()
		}
		return fieldErr(err, key)
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// writeProduct encodes p with the discount applicable now, if any.
func (h *Handler) writeProduct(e *jx.Encoder, p product.Product, snap *pricing.Snapshot) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("brand")
	e.Str(p.Brand)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("image")
	e.Str(h.imageURL(p.Image))
	e.FieldStart("price")
	writeMoney(e, p.Price)
	e.FieldStart("countInStock")
	e.Int(p.CountInStock)
	e.FieldStart("discount")
	writeSnapshot(e, snap)
	e.ObjEnd()
}

func writeDiscount(e *jx.Encoder, d discount.Discount) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(d.ID)
	e.FieldStart("name")
	e.Str(d.Name)
	e.FieldStart("description")
	e.Str(d.Description)
	e.FieldStart("discountPercentage")
	e.Int(d.Percentage)
	e.FieldStart("startDate")
	writeTime(e, d.StartDate)
	e.FieldStart("endDate")
	writeTime(e, d.EndDate)
	e.FieldStart("isActive")
	e.Bool(d.IsActive)
	e.FieldStart("applyToAllProducts")
	e.Bool(d.ApplyToAllProducts)
	e.FieldStart("applicableProducts")
	e.ArrStart()
	for _, id := range d.ApplicableProducts {
		e.Str(id)
	}
	e.ArrEnd()
	e.FieldStart("featuredImage")
	e.Str(d.FeaturedImage)
	e.FieldStart("createdBy")
	e.Str(d.CreatedBy)
	e.FieldStart("createdAt")
	writeTime(e, d.CreatedAt)
	e.FieldStart("updatedAt")
	writeTime(e, d.UpdatedAt)
	e.ObjEnd()
}

func (h *Handler) writeLine(e *jx.Encoder, l pricing.Line) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(l.ProductID)
	e.FieldStart("name")
	e.Str(l.Name)
	e.FieldStart("image")
	e.Str(h.imageURL(l.Image))
	e.FieldStart("price")
	writeMoney(e, l.Price)
	e.FieldStart("qty")
	e.Int(l.Qty)
	e.FieldStart("discount")
	writeSnapshot(e, l.Discount)
	e.FieldStart("unitPrice")
	writeMoney(e, l.UnitPrice())
	e.FieldStart("lineTotal")
	writeMoney(e, l.Total())
	e.ObjEnd()
}

func writeTotals(e *jx.Encoder, t pricing.Totals) {
	e.FieldStart("itemsPrice")
	writeMoney(e, t.ItemsPrice)
	e.FieldStart("shippingPrice")
	writeMoney(e, t.ShippingPrice)
	e.FieldStart("taxPrice")
	writeMoney(e, t.TaxPrice)
	e.FieldStart("totalPrice")
	writeMoney(e, t.TotalPrice)
}

func (h *Handler) writeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("customerId")
	e.Str(o.CustomerID)
	e.FieldStart("orderItems")
	e.ArrStart()
	for _, l := range o.Lines {
		h.writeLine(e, l)
	}
	e.ArrEnd()
	e.FieldStart("shippingAddress")
	e.ObjStart()
	e.FieldStart("address")
	e.Str(o.ShippingAddress.Address)
	e.FieldStart("city")
	e.Str(o.ShippingAddress.City)
	e.FieldStart("postalCode")
	e.Str(o.ShippingAddress.PostalCode)
	e.FieldStart("country")
	e.Str(o.ShippingAddress.Country)
	e.ObjEnd()
	e.FieldStart("paymentMethod")
	e.Str(o.PaymentMethod)
	writeTotals(e, o.Totals)
	e.FieldStart("isPaid")
	e.Bool(o.IsPaid)
	e.FieldStart("paidAt")
	writeOptTime(e, o.PaidAt)
	e.FieldStart("paymentResult")
	if r := o.PaymentResult; r != nil {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(r.ID)
		e.FieldStart("status")
		e.Str(r.Status)
		e.FieldStart("updateTime")
		e.Str(r.UpdateTime)
		e.FieldStart("emailAddress")
		e.Str(r.EmailAddress)
		e.ObjEnd()
	} else {
		e.Null()
	}
	e.FieldStart("isDelivered")
	e.Bool(o.IsDelivered)
	e.FieldStart("deliveredAt")
	writeOptTime(e, o.DeliveredAt)
	e.FieldStart("createdAt")
	writeTime(e, o.CreatedAt)
	e.ObjEnd()
}
