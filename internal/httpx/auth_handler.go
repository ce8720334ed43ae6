package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andrisetiaw/go-storefront/internal/login"
)

type AuthHandler struct {
	Auth *login.Authenticator
	Log  *slog.Logger
}

func (h *AuthHandler) Register(r *chi.Mux) {
	r.Post("/login", h.login)
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	token, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		code, msg := mapError(err)
		if code == http.StatusInternalServerError {
			h.Log.Error("login failed", "error", err)
		}
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
