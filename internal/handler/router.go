package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Router returns the API routes. Mutating catalog, coupon and user routes
// run behind admin.
func (h *Handler) Router(admin func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, r, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Route("/product", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/vps", h.listVPS)
		r.Get("/up-sell", h.upSell)
		r.Get("/{id}", h.getProduct)
		r.Post("/get-products-by-ids", h.productsByIDs)
		r.Post("/calculate", h.calculate)
		r.Post("/create-order", h.createOrder)
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/", h.createProduct)
			r.Put("/{id}", h.updateProduct)
			r.Delete("/{id}", h.deleteProduct)
			r.Post("/{id}/variant", h.addPackage)
			r.Post("/duplicate/{id}", h.duplicateProduct)
		})
	})

	r.Route("/product-type", func(r chi.Router) {
		r.Get("/", h.listProductTypes)
		r.Get("/{id}", h.getProductType)
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/", h.createProductType)
			r.Put("/{id}", h.updateProductType)
			r.Delete("/{id}", h.deleteProductType)
		})
	})

	r.Route("/cross-sell", func(r chi.Router) {
		r.Get("/", h.listCrossSells)
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/", h.createCrossSell)
			r.Put("/{id}", h.updateCrossSell)
			r.Delete("/{id}", h.deleteCrossSell)
		})
	})

	r.Route("/coupon", func(r chi.Router) {
		r.Post("/check", h.checkCoupon)
		r.Post("/validate", h.checkCoupon)
		r.Group(func(r chi.Router) {
			r.Use(admin)
			// Order placement redeems coupons itself; /use is a manual admin override.
			r.Post("/use", h.useCoupon)
			r.Get("/", h.listCoupons)
			r.Post("/", h.createCoupon)
			r.Put("/{id}", h.updateCoupon)
			r.Delete("/{id}", h.deleteCoupon)
		})
	})

	r.Route("/user", func(r chi.Router) {
		r.Post("/", h.createUser)
		r.With(admin).Get("/", h.listUsers)
	})

	r.Route("/notification", func(r chi.Router) {
		r.Post("/", h.createNotification)
		r.With(admin).Get("/", h.listNotifications)
	})

	r.Route("/domain", func(r chi.Router) {
		r.Get("/", h.listDomains)
		r.Post("/", h.suggestDomains)
		r.Get("/check", h.checkDomains)
		r.Get("/whois", h.whois)
	})

	r.Route("/information", func(r chi.Router) {
		r.Get("/cities", h.provinces)
		r.Get("/districts", h.districts)
		r.Get("/wards", h.wards)
	})

	return r
}
