package skill

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"portfolio-api/internal/observability"
	"portfolio-api/internal/web"
)

type Store interface {
	ListGrouped(ctx context.Context) ([]Group, error)
	CreateCategory(ctx context.Context, input CategoryInput) (Category, error)
	UpdateCategory(ctx context.Context, id string, input CategoryInput) (Category, error)
	DeleteCategory(ctx context.Context, id string) error
	CreateSkill(ctx context.Context, input SkillInput) (Skill, error)
	UpdateSkill(ctx context.Context, id string, input SkillInput) (Skill, error)
	DeleteSkill(ctx context.Context, id string) error
}

type Handler struct {
	store  Store
	logger *observability.Logger
}

func NewHandler(store Store, logger *observability.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.ListGrouped(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to list skills")
		return
	}
	web.WriteJSON(w, http.StatusOK, groups)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if !decodeInput(w, r, &input, input.Normalize) {
		return
	}

	c, err := h.store.CreateCategory(r.Context(), input)
	if err != nil {
		h.fail(w, r, err, "failed to create category")
		return
	}
	web.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input CategoryInput
	if !decodeInput(w, r, &input, input.Normalize) {
		return
	}

	c, err := h.store.UpdateCategory(r.Context(), id, input)
	if err != nil {
		h.fail(w, r, err, "failed to update category")
		return
	}
	web.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteCategory(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateSkill(w http.ResponseWriter, r *http.Request) {
	var input SkillInput
	if !decodeInput(w, r, &input, input.Normalize) {
		return
	}

	s, err := h.store.CreateSkill(r.Context(), input)
	if err != nil {
		h.fail(w, r, err, "failed to create skill")
		return
	}
	web.WriteJSON(w, http.StatusCreated, s)
}

func (h *Handler) UpdateSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var input SkillInput
	if !decodeInput(w, r, &input, input.Normalize) {
		return
	}

	s, err := h.store.UpdateSkill(r.Context(), id, input)
	if err != nil {
		h.fail(w, r, err, "failed to update skill")
		return
	}
	web.WriteJSON(w, http.StatusOK, s)
}

func (h *Handler) DeleteSkill(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteSkill(r.Context(), id); err != nil {
		h.fail(w, r, err, "failed to delete skill")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrCategoryNotFound), errors.Is(err, ErrSkillNotFound):
		web.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateCategory), errors.Is(err, ErrDuplicateSkill):
		web.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownCategory):
		web.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("skill_request_failed", map[string]any{"path": r.URL.Path, "error": err.Error()})
		observability.CaptureError(r, err)
		web.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeInput(w http.ResponseWriter, r *http.Request, dst any, normalize func() error) bool {
	if !web.DecodeJSON(w, r, dst) {
		return false
	}
	if err := normalize(); err != nil {
		message, _ := web.IsInputError(err)
		web.WriteError(w, http.StatusBadRequest, message)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid id")
		return "", false
	}
	return id, true
}
