package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/quickkart/authserver/internal/services"
	"github.com/quickkart/authserver/internal/store"
	"github.com/quickkart/authserver/types"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler provides the admin credential endpoints and /me.
type AuthHandler struct {
	admins        services.AdminRepository
	authenticator *services.Authenticator
	identity      *services.IdentityService
	tokens        *services.TokenService
	createSecret  string
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(
	admins services.AdminRepository,
	authenticator *services.Authenticator,
	identity *services.IdentityService,
	tokens *services.TokenService,
	createSecret string,
) *AuthHandler {
	return &AuthHandler{
		admins:        admins,
		authenticator: authenticator,
		identity:      identity,
		tokens:        tokens,
		createSecret:  createSecret,
	}
}

// AuthRouter registers the auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/admin/create", handler.CreateAdmin)
	r.Post("/admin/login", handler.Login)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth enforces bearer-token authentication and injects the verified
// identity into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		identity, err := h.tokens.Verify(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), contextIdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CreateAdmin provisions an administrator account. The route is guarded by
// the shared bootstrap secret in the x-create-secret header.
func (h *AuthHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("x-create-secret")
	if h.createSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.createSecret)) != 1 {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var req CreateAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "id and password required")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create admin")
		return
	}

	if _, err := h.admins.Create(r.Context(), types.Admin{
		ID:           req.ID,
		PasswordHash: string(hashed),
	}); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "admin exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create admin")
		return
	}

	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// Login verifies admin credentials and returns a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "id and password required")
		return
	}

	admin, err := h.authenticator.Verify(r.Context(), req.ID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLocked):
			writeError(w, http.StatusUnauthorized, "account locked")
		case errors.Is(err, services.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
		}
		return
	}

	token, err := h.tokens.Issue(admin.ID, services.RoleAdmin, services.AdminTokenTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{OK: true, Token: token})
}

// Me resolves the caller's bearer token to the current account record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var subject any
	switch identity.Role {
	case services.RoleUser:
		id, convErr := strconv.Atoi(identity.Subject)
		if convErr != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		subject, err = h.identity.GetUser(r.Context(), id)
	case services.RoleAdmin:
		subject, err = h.identity.GetAdmin(r.Context(), identity.Subject)
	default:
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{OK: true, User: subject})
}

type CreateAdminRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type LoginRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type LoginResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
}

type MeResponse struct {
	OK   bool `json:"ok"`
	User any  `json:"user"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
