package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
)

type couponCheckRequest struct {
	Code       string          `json:"code"`
	Products   []cart.Line     `json:"products"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	UserEmail  string          `json:"userEmail"`
}

func (req couponCheckRequest) domain() coupon.Request {
	return coupon.Request{
		Code:       req.Code,
		Lines:      req.Products,
		TotalPrice: req.TotalPrice,
		Email:      req.UserEmail,
	}
}

// resultStatus maps a coupon outcome to the HTTP status clients expect.
func resultStatus(res *coupon.Result) int {
	switch res.Reason {
	case coupon.ReasonNone:
		return http.StatusOK
	case coupon.ReasonNotFound:
		return http.StatusNotFound
	case coupon.ReasonExpired:
		return http.StatusGone
	case coupon.ReasonMinTotal:
		return http.StatusBadRequest
	default:
		return http.StatusForbidden
	}
}

func (h *Handler) checkCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponCheckRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.couponChecker.Evaluate(r.Context(), req.domain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, resultStatus(res))
	render.JSON(w, r, res)
}

func (h *Handler) useCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponCheckRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.couponChecker.Redeem(r.Context(), req.domain())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, resultStatus(res))
	render.JSON(w, r, res)
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(coupons))
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var c coupon.Coupon
	if err := decode(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.coupons.Create(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, c)
}

func (h *Handler) updateCoupon(w http.ResponseWriter, r *http.Request) {
	var c coupon.Coupon
	if err := decode(w, r, &c); err != nil {
		writeError(w, r, err)
		return
	}
	c.ID = chi.URLParam(r, "id")
	if err := h.coupons.Update(r.Context(), &c); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, c)
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := h.coupons.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, c)
}
