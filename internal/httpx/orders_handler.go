package httpx

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/andrisetiaw/go-storefront/internal/orders"
	"github.com/andrisetiaw/go-storefront/internal/redisx"
)

type OrdersHandler struct {
	Service *orders.Service
	Redis   *redis.Client // optional status read cache
	Log     *slog.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)

	r.Post("/orders", h.checkout)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)

	r.Get("/admin/orders", h.adminListOrders)
	r.Put("/admin/orders/{id}/status", h.updateStatus)
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	order, err := h.Service.Checkout(r.Context(), uid)
	if err != nil {
		code, msg := mapError(err)
		if code == http.StatusInternalServerError {
			h.Log.Error("checkout failed", "user_id", uid, "error", err)
		} else {
			h.Log.Info("checkout rejected", "user_id", uid, "reason", msg)
		}
		writeError(w, code, msg)
		return
	}

	h.cacheStatus(r, order.ID, order.Status)
	writeJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	out, err := h.Service.ListOrders(r.Context(), uid)
	if err != nil {
		h.Log.Error("list orders failed", "user_id", uid, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	order, err := h.Service.GetOrder(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		code, msg := mapError(err)
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// getOrderStatus serves the cached status when present and falls back to the
// store, re-priming the cache.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing identity")
		return
	}
	orderID := chi.URLParam(r, "id")

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(r.Context(), key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	order, err := h.Service.GetOrder(r.Context(), uid, orderID)
	if err != nil {
		code, msg := mapError(err)
		writeError(w, code, msg)
		return
	}
	h.cacheStatus(r, order.ID, order.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": order.Status})
}

func (h *OrdersHandler) adminListOrders(w http.ResponseWriter, r *http.Request) {
	if userRole(r) != "ADMIN" {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	out, err := h.Service.ListAllOrders(r.Context())
	if err != nil {
		h.Log.Error("admin list orders failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	if userRole(r) != "ADMIN" {
		writeError(w, http.StatusForbidden, "admin only")
		return
	}
	orderID := chi.URLParam(r, "id")

	status, err := orders.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.Service.UpdateStatus(r.Context(), orderID, status)
	if err != nil {
		code, msg := mapError(err)
		if code == http.StatusInternalServerError {
			h.Log.Error("status update failed", "order_id", orderID, "error", err)
		} else {
			h.Log.Info("status update rejected", "order_id", orderID, "reason", msg)
		}
		writeError(w, code, msg)
		return
	}

	h.cacheStatus(r, order.ID, order.Status)
	writeJSON(w, http.StatusOK, order)
}

func (h *OrdersHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.ListProducts(r.Context())
	if err != nil {
		h.Log.Error("list products failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) cacheStatus(r *http.Request, orderID string, status orders.Status) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	body, _ := json.Marshal(map[string]any{"status": status})
	_ = h.Redis.Set(r.Context(), key, body, redisx.TTLStatusCache).Err()
}
