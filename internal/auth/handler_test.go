package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-api/internal/observability"
)

type handlerFixture struct {
	mux      *http.ServeMux
	service  *Service
	notifier *capturingNotifier
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	service, _, notifier := newElevatingService(t)
	handler := NewHandler(service, NewCookieOptions(false, DefaultSessionTTL), observability.NewLoggerTo(io.Discard))
	guard := NewGuard(service.Tokens(), ChainExtractor{CookieExtractor{}, BearerExtractor{}})
	bearer := NewGuard(service.Tokens(), BearerExtractor{})

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/signup", handler.Signup)
	mux.HandleFunc("POST /auth/login", handler.Login)
	mux.HandleFunc("POST /auth/logout", handler.Logout)
	mux.Handle("GET /auth/me", guard.ProtectFunc(CapabilityAuthenticated, handler.Me))
	mux.Handle("POST /auth/admin/otp", guard.ProtectFunc(CapabilityManageContent, handler.RequestElevation))
	mux.Handle("POST /auth/admin/verify", guard.ProtectFunc(CapabilityManageContent, handler.VerifyElevation))
	mux.Handle("GET /admin/accounts", bearer.ProtectFunc(CapabilityElevated, handler.ListAccounts))
	mux.Handle("PATCH /admin/accounts/{id}/role", bearer.ProtectFunc(CapabilityElevated, handler.ChangeRole))

	return &handlerFixture{mux: mux, service: service, notifier: notifier}
}

func (f *handlerFixture) do(t *testing.T, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", SessionCookieName)
	return nil
}

func TestHandler_SignupLoginLogout(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/signup", `{"username":"alice","email":"alice@example.com","password":"s3cret!"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)

	var signup struct {
		Account map[string]any `json:"account"`
		Token   string         `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signup))
	assert.Equal(t, "alice", signup.Account["username"])
	assert.Equal(t, "USER", signup.Account["role"])
	assert.Equal(t, cookie.Value, signup.Token)

	rec = f.do(t, http.MethodPost, "/auth/login", `{"username":"alice","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeMessage(t, rec))

	rec = f.do(t, http.MethodPost, "/auth/login", `{"username":"nobody","password":"s3cret!"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", decodeMessage(t, rec))

	rec = f.do(t, http.MethodPost, "/auth/login", `{"username":"alice","password":"s3cret!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	login := sessionCookie(t, rec)

	rec = f.do(t, http.MethodGet, "/auth/me", "", login)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)

	rec = f.do(t, http.MethodPost, "/auth/logout", "", login)
	require.Equal(t, http.StatusOK, rec.Code)
	cleared := sessionCookie(t, rec)
	assert.Empty(t, cleared.Value)
	assert.Equal(t, -1, cleared.MaxAge)
}

func TestHandler_SignupErrors(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/signup", `{"username":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username, email and password are required", decodeMessage(t, rec))

	rec = f.do(t, http.MethodPost, "/auth/signup", `{"username":"alice","email":"alice@example.com","password":"s3cret!","role":"ADMIN"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid json body", decodeMessage(t, rec))

	rec = f.do(t, http.MethodPost, "/auth/signup", `{"username":"alice","email":"alice@example.com","password":"s3cret!"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/signup", `{"username":"alice","email":"other@example.com","password":"s3cret!"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "account already exists", decodeMessage(t, rec))
}

func TestHandler_MeWithoutSession(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "no token provided", decodeMessage(t, rec))
}

func TestHandler_ElevationFlow(t *testing.T) {
	f := newHandlerFixture(t)
	require.NoError(t, f.service.BootstrapAdmin(context.Background(), "admin", "admin@example.com", "s3cret!"))

	rec := f.do(t, http.MethodPost, "/auth/login", `{"username":"admin","password":"s3cret!"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	admin := sessionCookie(t, rec)

	rec = f.do(t, http.MethodGet, "/admin/accounts", "", admin)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/admin/verify", `{"code":"123456"}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no pending verification, request a new code", decodeMessage(t, rec))

	rec = f.do(t, http.MethodPost, "/auth/admin/otp", "", admin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sent_to":"a****@example.com"`)

	wrong := "000000"
	if f.notifier.lastCode() == wrong {
		wrong = "111111"
	}
	rec = f.do(t, http.MethodPost, "/auth/admin/verify", `{"code":"`+wrong+`"}`, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid verification code", decodeMessage(t, rec))

	rec = f.do(t, http.MethodPost, "/auth/admin/verify", `{"code":"`+f.notifier.lastCode()+`"}`, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var elevated ElevationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &elevated))
	assert.Equal(t, "Bearer", elevated.TokenType)

	req := httptest.NewRequest(http.MethodGet, "/admin/accounts", nil)
	req.AddCookie(admin)
	req.Header.Set("Authorization", "Bearer "+elevated.Token)
	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var accounts []Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accounts))
	require.Len(t, accounts, 1)
	assert.Equal(t, "admin", accounts[0].Username)
}

func TestHandler_UserCannotRequestElevation(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/auth/signup", `{"username":"alice","email":"alice@example.com","password":"s3cret!"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/admin/otp", "", sessionCookie(t, rec))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, f.notifier.to)
}

func TestHandler_ChangeRole(t *testing.T) {
	f := newHandlerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.service.BootstrapAdmin(ctx, "admin", "admin@example.com", "s3cret!"))
	alice, err := f.service.Signup(ctx, SignupInput{Username: "alice", Email: "alice@example.com", Password: "s3cret!"})
	require.NoError(t, err)
	admin, err := f.service.Login(ctx, "admin", "s3cret!")
	require.NoError(t, err)
	elevated, err := f.service.Tokens().IssueElevated(admin.Account.ID)
	require.NoError(t, err)

	send := func(id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/admin/accounts/"+id+"/role", bytes.NewBufferString(body))
		req.Header.Set("Authorization", "Bearer "+elevated.Value)
		rec := httptest.NewRecorder()
		f.mux.ServeHTTP(rec, req)
		return rec
	}

	rec := send(alice.Account.ID, `{"role":"admin"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"ADMIN"`)

	rec = send(admin.Account.ID, `{"role":"USER"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cannot change your own role", decodeMessage(t, rec))

	rec = send("missing", `{"role":"USER"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
