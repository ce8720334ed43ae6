package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andrisetiaw/go-storefront/internal/login"
	"github.com/andrisetiaw/go-storefront/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// mapError translates the service error taxonomy to HTTP. Business-rule
// outcomes keep their message; everything unexpected collapses to a 500.
func mapError(err error) (int, string) {
	var (
		stockErr      *orders.InsufficientStockError
		transitionErr *orders.InvalidTransitionError
	)
	switch {
	case errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, orders.ErrInvalidQty):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &stockErr):
		return http.StatusBadRequest, stockErr.Error()
	case errors.As(err, &transitionErr):
		return http.StatusBadRequest, transitionErr.Error()
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, orders.ErrUnauthorized):
		return http.StatusForbidden, "unauthorized access"
	case errors.Is(err, login.ErrTooManyAttempts):
		return http.StatusTooManyRequests, err.Error()
	case errors.Is(err, login.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// Authentication itself is upstream; the gateway forwards the verified
// identity in headers.
func userID(r *http.Request) string   { return r.Header.Get("X-User-Id") }
func userRole(r *http.Request) string { return r.Header.Get("X-User-Role") }
