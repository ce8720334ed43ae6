package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andrisetiaw/go-storefront/internal/orders"
)

type CartHandler struct {
	Service *orders.Service
	Log     *slog.Logger
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Put("/cart/items/{id}", h.updateItem)
	r.Delete("/cart/items/{id}", h.removeItem)
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemReq struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	cart, lines, err := h.Service.GetCart(r.Context(), uid)
	if err != nil {
		h.Log.Error("get cart failed", "user_id", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if lines == nil {
		lines = []orders.CartLine{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"cart": cart, "items": lines})
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	item, err := h.Service.AddCartItem(r.Context(), uid, req.ProductID, req.Quantity)
	if err != nil {
		code, msg := mapError(err)
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	var req updateItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	item, err := h.Service.UpdateCartItemQuantity(r.Context(), uid, chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		code, msg := mapError(err)
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	if err := h.Service.RemoveCartItem(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		code, msg := mapError(err)
		writeError(w, code, msg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
