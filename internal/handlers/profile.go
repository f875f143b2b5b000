package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/storefront/apiserver/internal/services"
	"github.com/storefront/apiserver/internal/storage"
)

// ProfileHandler provides authenticated profile edits and avatar
// uploads.
type ProfileHandler struct {
	authService *services.AuthService
	media       storage.ObjectStore
}

func NewProfileHandler(authService *services.AuthService, media storage.ObjectStore) *ProfileHandler {
	return &ProfileHandler{
		authService: authService,
		media:       media,
	}
}

// ProfileRouter registers profile routes on the given router. All
// routes require authentication.
func ProfileRouter(r chi.Router, handler *ProfileHandler, requireAuth func(http.Handler) http.Handler) {
	r.Use(requireAuth)
	r.Put("/me", handler.Update)
	r.Post("/me/avatar", handler.UploadAvatar)
}

func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	user, err := h.authService.UpdateProfile(r.Context(), claims.UserID, req.Name, req.Phone)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	claims, err := claimsFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "avatar file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		writeError(w, http.StatusBadRequest, "image too large")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "only image uploads are allowed")
		return
	}

	key := storage.ImageKey("avatars", header.Filename)
	if err := h.media.Put(r.Context(), key, file, header.Size, contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store avatar")
		return
	}

	user, err := h.authService.UpdateAvatar(r.Context(), claims.UserID, h.media.URL(key))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type ProfileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}
