package handlers

import (
	"context"
	"net/http"

	"github.com/pribylovaa/accounts-service/internal/http/httperr"
	"github.com/pribylovaa/accounts-service/internal/models"
	"github.com/pribylovaa/accounts-service/internal/service"
	"github.com/pribylovaa/accounts-service/internal/storage"
)

type updateAccountRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// UpdateAccount — PATCH /users/update-account (auth).
// Оба поля обязательны.
func (h *Handlers) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}

	var in updateAccountRequest
	if err := decodeStrict(r, &in); err != nil {
		httperr.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	user, err := h.Service.UpdateAccount(r.Context(), userID, service.UpdateAccountInput{
		FullName: in.FullName,
		Email:    in.Email,
	})
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateAvatar — PATCH /users/avatar (auth, multipart, файл "avatar").
func (h *Handlers) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.Service.UpdateAvatar)
}

// UpdateCoverImage — PATCH /users/cover-image (auth, multipart, файл "coverImage").
func (h *Handlers) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.Service.UpdateCoverImage)
}

// updateImage — общий сценарий «принять multipart-файл, отдать сервису».
func (h *Handlers) updateImage(
	w http.ResponseWriter,
	r *http.Request,
	field string,
	update func(ctx context.Context, userID string, upload storage.ImageUpload) (*models.User, error),
) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(h.Cfg.Images.MaxSizeBytes); err != nil {
		httperr.WriteError(w, r, service.ErrInvalidArgument)
		return
	}

	upload, closeFn, err := fileUpload(r, field)
	if err != nil {
		httperr.WriteError(w, r, service.ErrInvalidArgument)
		return
	}
	defer closeFn()

	user, err := update(r.Context(), userID, *upload)
	if err != nil {
		httperr.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
