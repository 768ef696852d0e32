package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Parzival048/ecomreact/internal/domain/auth"
	"github.com/Parzival048/ecomreact/pkg/httpmiddleware"
)

// NewRouter mounts the API under /api. Catalog, active and featured discounts
// and cart quotes are public. Order routes need the orders scope and
// administration routes need admin.
func NewRouter(h *Handler, sec *SecurityHandler) *chi.Mux {
	r := chi.NewRouter()
	admin := sec.Require(auth.ScopeAdmin)
	customer := sec.Require(auth.ScopeOrders)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.ListProducts)
			r.Get("/{id}", h.GetProduct)
			r.With(admin).Put("/{id}", h.UpsertProduct)
		})

		r.Route("/discounts", func(r chi.Router) {
			r.Get("/active", h.ActiveDiscounts)
			r.Get("/featured", h.FeaturedDiscount)

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Get("/", h.ListDiscounts)
				r.Post("/", h.CreateDiscount)
				r.Get("/{id}", h.GetDiscount)
				r.Put("/{id}", h.UpdateDiscount)
				r.Delete("/{id}", h.DeleteDiscount)
			})
		})

		r.Post("/cart/quote", h.QuoteCart)

		r.Route("/orders", func(r chi.Router) {
			r.With(customer).Post("/", h.PlaceOrder)
			r.With(customer).Get("/mine", h.MyOrders)
			r.With(customer).Get("/{id}", h.GetOrder)
			r.With(customer).Put("/{id}/pay", h.PayOrder)

			r.With(admin).Get("/", h.ListOrders)
			r.With(admin).Get("/export", h.ExportOrders)
			r.With(admin).Put("/{id}/deliver", h.DeliverOrder)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// MakeRouteFinder returns a RouteFinder resolving requests against mux. The
// result is the route pattern, like /api/orders/{id}.
func MakeRouteFinder(mux *chi.Mux) httpmiddleware.RouteFinder {
	return func(r *http.Request) string {
		return mux.Find(chi.NewRouteContext(), r.Method, r.URL.Path)
	}
}
