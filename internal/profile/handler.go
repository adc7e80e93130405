package profile

import (
	"context"
	"errors"
	"net/http"

	"portfolio-api/internal/media"
	"portfolio-api/internal/observability"
	"portfolio-api/internal/web"
)

type Store interface {
	Get(ctx context.Context) (Profile, error)
	Upsert(ctx context.Context, input Input) (Profile, error)
}

type Handler struct {
	store    Store
	uploader media.ImageUploader
	logger   *observability.Logger
}

func NewHandler(store Store, uploader media.ImageUploader, logger *observability.Logger) *Handler {
	return &Handler{store: store, uploader: uploader, logger: logger}
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Get(r.Context())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			web.WriteError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.internal(w, r, err, "failed to load profile")
		return
	}
	web.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var input Input
	if !web.DecodeJSON(w, r, &input) {
		return
	}
	if err := input.Normalize(); err != nil {
		message, _ := web.IsInputError(err)
		web.WriteError(w, http.StatusBadRequest, message)
		return
	}

	avatar, err := media.Rehost(r.Context(), h.uploader, input.AvatarURL, "profile")
	if err != nil {
		h.logger.Warn("profile_avatar_upload_failed", map[string]any{"error": err.Error()})
		observability.CaptureError(r, err)
		web.WriteError(w, http.StatusBadGateway, "failed to upload image")
		return
	}
	input.AvatarURL = avatar

	p, err := h.store.Upsert(r.Context(), input)
	if err != nil {
		h.internal(w, r, err, "failed to update profile")
		return
	}

	h.logger.Info("profile_updated", nil)
	web.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, err error, message string) {
	h.logger.Error("profile_request_failed", map[string]any{"path": r.URL.Path, "error": err.Error()})
	observability.CaptureError(r, err)
	web.WriteError(w, http.StatusInternalServerError, message)
}
