package project

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"portfolio-api/internal/media"
	"portfolio-api/internal/observability"
	"portfolio-api/internal/web"
)

const imageFolder = "projects"

// Store is the persistence the handler needs; *Repository satisfies it.
type Store interface {
	List(ctx context.Context, featuredOnly bool) ([]Project, error)
	Get(ctx context.Context, id string) (Project, error)
	Create(ctx context.Context, input Input) (Project, error)
	Update(ctx context.Context, id string, input Input) (Project, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	store    Store
	uploader media.ImageUploader
	logger   *observability.Logger
}

func NewHandler(store Store, uploader media.ImageUploader, logger *observability.Logger) *Handler {
	return &Handler{store: store, uploader: uploader, logger: logger}
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	featuredOnly, _ := strconv.ParseBool(r.URL.Query().Get("featured"))

	projects, err := h.store.List(r.Context(), featuredOnly)
	if err != nil {
		h.internal(w, r, err, "failed to list projects")
		return
	}

	web.WriteJSON(w, http.StatusOK, projects)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	p, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "failed to load project")
		return
	}

	web.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	input, ok := h.parseInput(w, r)
	if !ok {
		return
	}

	p, err := h.store.Create(r.Context(), input)
	if err != nil {
		h.internal(w, r, err, "failed to create project")
		return
	}

	h.logger.Info("project_created", map[string]any{"project_id": p.ID})
	web.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	input, ok := h.parseInput(w, r)
	if !ok {
		return
	}

	p, err := h.store.Update(r.Context(), id, input)
	if err != nil {
		h.fail(w, r, err, "failed to update project")
		return
	}

	web.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := projectID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete project")
		return
	}

	h.logger.Info("project_deleted", map[string]any{"project_id": id})
	w.WriteHeader(http.StatusNoContent)
}

// parseInput decodes and validates the body, then moves any external image onto the media host.
func (h *Handler) parseInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var input Input
	if !web.DecodeJSON(w, r, &input) {
		return Input{}, false
	}
	if err := input.Normalize(); err != nil {
		message, _ := web.IsInputError(err)
		web.WriteError(w, http.StatusBadRequest, message)
		return Input{}, false
	}

	hosted, err := media.Rehost(r.Context(), h.uploader, input.ImageURL, imageFolder)
	if err != nil {
		h.logger.Warn("project_image_upload_failed", map[string]any{"error": err.Error()})
		observability.CaptureError(r, err)
		web.WriteError(w, http.StatusBadGateway, "failed to upload image")
		return Input{}, false
	}
	input.ImageURL = hosted

	return input, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, ErrNotFound) {
		web.WriteError(w, http.StatusNotFound, "project not found")
		return
	}
	h.internal(w, r, err, fallback)
}

func (h *Handler) internal(w http.ResponseWriter, r *http.Request, err error, message string) {
	h.logger.Error("project_request_failed", map[string]any{"path": r.URL.Path, "error": err.Error()})
	observability.CaptureError(r, err)
	web.WriteError(w, http.StatusInternalServerError, message)
}

func projectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid project id")
		return "", false
	}
	return id, true
}
