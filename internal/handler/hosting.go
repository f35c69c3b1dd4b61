package handler

import (
	"net/http"

	"github.com/go-faster/jx"
)

// writeRaw relays an upstream JSON document unchanged.
func writeRaw(w http.ResponseWriter, r *http.Request, raw jx.Raw, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (h *Handler) listDomains(w http.ResponseWriter, r *http.Request) {
	raw, err := h.domains.ListDomains(r.Context())
	writeRaw(w, r, raw, err)
}

func (h *Handler) suggestDomains(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keyword string `json:"keyword"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	raw, err := h.domains.Suggest(r.Context(), req.Keyword)
	writeRaw(w, r, raw, err)
}

func (h *Handler) checkDomains(w http.ResponseWriter, r *http.Request) {
	raw, err := h.domains.CheckAvailable(r.Context(), r.URL.Query().Get("domain"))
	writeRaw(w, r, raw, err)
}

func (h *Handler) whois(w http.ResponseWriter, r *http.Request) {
	raw, err := h.domains.Whois(r.Context(), r.URL.Query().Get("domain"))
	writeRaw(w, r, raw, err)
}

func (h *Handler) provinces(w http.ResponseWriter, r *http.Request) {
	raw, err := h.locations.Provinces(r.Context())
	writeRaw(w, r, raw, err)
}

func (h *Handler) districts(w http.ResponseWriter, r *http.Request) {
	raw, err := h.locations.Districts(r.Context(), r.URL.Query().Get("province_code_name"))
	writeRaw(w, r, raw, err)
}

func (h *Handler) wards(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw, err := h.locations.Wards(r.Context(), q.Get("province_code_name"), q.Get("district_code_name"))
	writeRaw(w, r, raw, err)
}
