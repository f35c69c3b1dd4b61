package handler

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/xenking/storefront/internal/domain/user"
)

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(users))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req user.CreateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.users.Create(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, u)
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	subs, err := h.notifications.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, nonNil(subs))
}

func (h *Handler) createNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		FullName string `json:"fullName"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.notifications.Subscribe(r.Context(), req.Email, req.FullName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, sub)
}
