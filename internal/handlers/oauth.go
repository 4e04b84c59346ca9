package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quickkart/authserver/internal/services"
)

// OAuthHandler exposes the provider authorization-code flow.
type OAuthHandler struct {
	svc *services.OAuthService
}

func NewOAuthHandler(svc *services.OAuthService) *OAuthHandler {
	return &OAuthHandler{svc: svc}
}

// OAuthRouter registers the OAuth routes on the given router.
func OAuthRouter(r chi.Router, handler *OAuthHandler) {
	r.Get("/auth/google/start", handler.Start)
	r.Get("/auth/google/callback", handler.Callback)
}

// Start redirects the browser to the provider's consent screen.
func (h *OAuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.AuthURL()
	if err != nil {
		if errors.Is(err, services.ErrProviderNotConfigured) {
			writeError(w, http.StatusInternalServerError, "google client id not configured")
			return
		}
		writeError(w, http.StatusInternalServerError, "oauth error")
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// Callback completes the flow and redirects the browser to the frontend.
// Provider failures surface as a generic error; detail stays in the logs.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	dest, err := h.svc.Complete(r.Context(), code, r.URL.Query().Get("state"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidState):
			writeError(w, http.StatusBadRequest, "invalid state")
		default:
			writeError(w, http.StatusInternalServerError, "oauth error")
		}
		return
	}

	http.Redirect(w, r, dest, http.StatusFound)
}
