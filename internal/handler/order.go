package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/hosting"
)

type cartRequest struct {
	Products []cart.Line   `json:"products"`
	Domains  []cart.Domain `json:"domains"`
	Coupon   string        `json:"coupon"`
	Email    string        `json:"email"`
}

func (req cartRequest) cart() pricing.Cart {
	return pricing.Cart{
		Lines:      req.Products,
		Domains:    req.Domains,
		CouponCode: req.Coupon,
		Email:      req.Email,
	}
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req cartRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.pricer.Compute(r.Context(), req.cart())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, b)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		cartRequest
		ClientID      string          `json:"clientId"`
		Contact       hosting.Contact `json:"contact"`
		ServiceDomain string          `json:"serviceDomain"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.orders.Place(r.Context(), order.Request{
		Cart:          req.cart(),
		ClientID:      req.ClientID,
		Contact:       req.Contact,
		ServiceDomain: req.ServiceDomain,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, res)
}
