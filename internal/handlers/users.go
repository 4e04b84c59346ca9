package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/quickkart/authserver/internal/avatars"
	"github.com/quickkart/authserver/internal/services"
	"github.com/quickkart/authserver/types"
)

// UserHandler serves the bounded user listing and mirrored avatars.
type UserHandler struct {
	identity *services.IdentityService
	avatars  *avatars.Mirror
}

func NewUserHandler(identity *services.IdentityService, mirror *avatars.Mirror) *UserHandler {
	return &UserHandler{identity: identity, avatars: mirror}
}

// UserRouter registers the user routes on the given router.
func UserRouter(r chi.Router, handler *UserHandler) {
	r.Get("/users", handler.List)
	r.Get("/users/{id}/avatar", handler.Avatar)
}

// List returns up to `limit` users (listing only for now).
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	users, err := h.identity.ListUsers(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, UsersResponse{OK: true, Users: users})
}

// Avatar streams the user's mirrored profile picture.
func (h *UserHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	reader, err := h.avatars.Open(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "avatar not found")
		return
	}
	defer reader.Close()

	buf := make([]byte, 512)
	n, _ := io.ReadFull(reader, buf)
	if n == 0 {
		writeError(w, http.StatusNotFound, "avatar not found")
		return
	}
	buf = buf[:n]

	w.Header().Set("Content-Type", http.DetectContentType(buf))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf)
	_, _ = io.Copy(w, reader)
}

type UsersResponse struct {
	OK    bool         `json:"ok"`
	Users []types.User `json:"users"`
}
