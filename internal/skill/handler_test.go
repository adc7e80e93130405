package skill

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/observability"
)

type stubStore struct {
	Store
	createdSkill SkillInput
	skillErr     error
	categoryErr  error
}

func (s *stubStore) ListGrouped(context.Context) ([]Group, error) {
	return []Group{{Category: Category{ID: backendID, Name: "Backend"}, Skills: []Skill{{ID: goSkillID, Name: "Go"}}}}, nil
}

func (s *stubStore) CreateCategory(_ context.Context, input CategoryInput) (Category, error) {
	if s.categoryErr != nil {
		return Category{}, s.categoryErr
	}
	return Category{ID: backendID, Name: input.Name}, nil
}

func (s *stubStore) CreateSkill(_ context.Context, input SkillInput) (Skill, error) {
	if s.skillErr != nil {
		return Skill{}, s.skillErr
	}
	s.createdSkill = input
	return Skill{ID: goSkillID, CategoryID: input.CategoryID, Name: input.Name, Level: input.Level}, nil
}

func (s *stubStore) DeleteSkill(context.Context, string) error {
	return ErrSkillNotFound
}

func newTestMux(store Store) *http.ServeMux {
	handler := NewHandler(store, observability.NewLoggerTo(io.Discard))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /skills", handler.ListSkills)
	mux.HandleFunc("POST /categories", handler.CreateCategory)
	mux.HandleFunc("POST /skills", handler.CreateSkill)
	mux.HandleFunc("DELETE /skills/{id}", handler.DeleteSkill)
	return mux
}

func serve(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandler_ListSkills(t *testing.T) {
	rec := serve(newTestMux(&stubStore{}), http.MethodGet, "/skills", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Backend"`)
	assert.Contains(t, rec.Body.String(), `"skills":[{`)
}

func TestHandler_CreateSkill(t *testing.T) {
	store := &stubStore{}
	mux := newTestMux(store)

	rec := serve(mux, http.MethodPost, "/skills", `{"category_id":"`+backendID+`","name":" Go ","level":90}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Go", store.createdSkill.Name)

	rec = serve(mux, http.MethodPost, "/skills", `{"category_id":"`+backendID+`","name":"Go","level":101}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"level must be between 0 and 100"}`, rec.Body.String())

	rec = serve(mux, http.MethodPost, "/skills", `{"category_id":"nope","name":"Go"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"category_id is invalid"}`, rec.Body.String())

	store.skillErr = ErrUnknownCategory
	rec = serve(mux, http.MethodPost, "/skills", `{"category_id":"`+backendID+`","name":"Go"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"category does not exist"}`, rec.Body.String())
}

func TestHandler_CreateCategoryConflict(t *testing.T) {
	mux := newTestMux(&stubStore{categoryErr: ErrDuplicateCategory})

	rec := serve(mux, http.MethodPost, "/categories", `{"name":"Backend"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message":"category already exists"}`, rec.Body.String())
}

func TestHandler_DeleteSkillNotFound(t *testing.T) {
	mux := newTestMux(&stubStore{})

	rec := serve(mux, http.MethodDelete, "/skills/"+goSkillID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"skill not found"}`, rec.Body.String())
}
