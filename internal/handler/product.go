package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/xenking/storefront/internal/domain/catalog"
)

// vpsTypeName is the product type listed by /product/vps.
const vpsTypeName = "vps"

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.catalog.Products().List(r.Context(), catalog.Filter{
		Name:     q.Get("name"),
		TypeName: q.Get("type"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(products))
}

func (h *Handler) listVPS(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products().List(r.Context(), catalog.Filter{TypeName: vpsTypeName})
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(products))
}

func (h *Handler) upSell(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("optionID")
	if id == "" {
		writeError(w, r, catalog.ErrNotFound)
		return
	}
	products, err := h.catalog.UpSell(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(products))
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Products().GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

func (h *Handler) productsByIDs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	products, err := h.catalog.Products().GetByIDs(r.Context(), req.IDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(products))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decode(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.catalog.CreateProduct(r.Context(), &p); err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decode(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = chi.URLParam(r, "id")
	if err := h.catalog.UpdateProduct(r.Context(), &p); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Products().Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

func (h *Handler) addPackage(w http.ResponseWriter, r *http.Request) {
	var pkg catalog.Package
	if err := decode(w, r, &pkg); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.catalog.AddPackage(r.Context(), chi.URLParam(r, "id"), pkg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, p)
}

func (h *Handler) duplicateProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.DuplicateProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, p)
}

func (h *Handler) listProductTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.catalog.Types().List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(types))
}

func (h *Handler) getProductType(w http.ResponseWriter, r *http.Request) {
	t, err := h.catalog.Types().GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, t)
}

func (h *Handler) createProductType(w http.ResponseWriter, r *http.Request) {
	var t catalog.ProductType
	if err := decode(w, r, &t); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.catalog.CreateType(r.Context(), &t); err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, t)
}

func (h *Handler) updateProductType(w http.ResponseWriter, r *http.Request) {
	var t catalog.ProductType
	if err := decode(w, r, &t); err != nil {
		writeError(w, r, err)
		return
	}
	t.ID = chi.URLParam(r, "id")
	if err := h.catalog.UpdateType(r.Context(), &t); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, t)
}

func (h *Handler) deleteProductType(w http.ResponseWriter, r *http.Request) {
	t, err := h.catalog.Types().Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, t)
}

func (h *Handler) listCrossSells(w http.ResponseWriter, r *http.Request) {
	rules, err := h.catalog.CrossSells().List(r.Context(), r.URL.Query().Get("optionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(rules))
}

func (h *Handler) createCrossSell(w http.ResponseWriter, r *http.Request) {
	var rule catalog.CrossSellRule
	if err := decode(w, r, &rule); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.catalog.CreateCrossSell(r.Context(), &rule); err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rule)
}

func (h *Handler) updateCrossSell(w http.ResponseWriter, r *http.Request) {
	var rule catalog.CrossSellRule
	if err := decode(w, r, &rule); err != nil {
		writeError(w, r, err)
		return
	}
	rule.ID = chi.URLParam(r, "id")
	if err := h.catalog.UpdateCrossSell(r.Context(), &rule); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, rule)
}

func (h *Handler) deleteCrossSell(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.CrossSells().Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// nonNil keeps empty listings encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
