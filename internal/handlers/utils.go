package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quickkart/authserver/internal/services"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

type ErrorResponse struct {
	Error string `json:"error"`
}

func identityFromContext(ctx context.Context) (services.Identity, error) {
	identity, ok := ctx.Value(contextIdentityKey).(services.Identity)
	if !ok {
		return services.Identity{}, errors.New("missing identity")
	}
	return identity, nil
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
