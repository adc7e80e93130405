package auth

import (
	"errors"
	"net/http"
	"strings"

	"portfolio-api/internal/observability"
	"portfolio-api/internal/otp"
	"portfolio-api/internal/web"
)

type Handler struct {
	service *Service
	cookies CookieOptions
	logger  *observability.Logger
}

func NewHandler(service *Service, cookies CookieOptions, logger *observability.Logger) *Handler {
	return &Handler{service: service, cookies: cookies, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type verifyElevationRequest struct {
	Code string `json:"code"`
}

type changeRoleRequest struct {
	Role Role `json:"role"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var body SignupInput
	if !web.DecodeJSON(w, r, &body) {
		return
	}

	result, err := h.service.Signup(r.Context(), body)
	if err != nil {
		h.fail(w, r, err, "failed to sign up")
		return
	}

	h.cookies.Set(w, Token{Value: result.Token, ExpiresAt: result.ExpiresAt})
	web.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !web.DecodeJSON(w, r, &body) {
		return
	}

	result, err := h.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrInvalidCredentials) {
			web.WriteError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.fail(w, r, err, "failed to login")
		return
	}

	h.cookies.Set(w, Token{Value: result.Token, ExpiresAt: result.ExpiresAt})
	web.WriteJSON(w, http.StatusOK, result)
}

// Logout only clears the cookie; the token itself stays valid until it expires.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookies.Clear(w)
	web.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		web.WriteError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	account, err := h.service.Me(r.Context(), claims.SubjectID)
	if err != nil {
		h.fail(w, r, err, "failed to load account")
		return
	}

	web.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) RequestElevation(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		web.WriteError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	sentTo, err := h.service.RequestElevation(r.Context(), claims.SubjectID)
	if err != nil {
		h.fail(w, r, err, "failed to start verification")
		return
	}

	h.logger.Info("elevation_code_sent", map[string]any{"account_id": claims.SubjectID})
	web.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "verification code sent",
		"sent_to": sentTo,
	})
}

func (h *Handler) VerifyElevation(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		web.WriteError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	var body verifyElevationRequest
	if !web.DecodeJSON(w, r, &body) {
		return
	}

	result, err := h.service.CompleteElevation(r.Context(), claims.SubjectID, body.Code)
	if err != nil {
		h.fail(w, r, err, "failed to verify code")
		return
	}

	h.logger.Info("elevation_granted", map[string]any{"account_id": claims.SubjectID})
	web.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.fail(w, r, err, "failed to list accounts")
		return
	}

	web.WriteJSON(w, http.StatusOK, accounts)
}

func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		web.WriteError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	var body changeRoleRequest
	if !web.DecodeJSON(w, r, &body) {
		return
	}
	body.Role = Role(strings.ToUpper(strings.TrimSpace(string(body.Role))))

	account, err := h.service.ChangeRole(r.Context(), claims.SubjectID, r.PathValue("id"), body.Role)
	if err != nil {
		h.fail(w, r, err, "failed to change role")
		return
	}

	h.logger.Info("account_role_changed", map[string]any{
		"actor_id":   claims.SubjectID,
		"account_id": account.ID,
		"role":       account.Role,
	})
	web.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var validationErr ValidationError
	switch {
	case errors.As(err, &validationErr):
		web.WriteError(w, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, ErrDuplicateAccount):
		web.WriteError(w, http.StatusBadRequest, "account already exists")
	case errors.Is(err, ErrAccountNotFound):
		web.WriteError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, ErrInvalidCredentials):
		web.WriteError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, ErrAccessDenied):
		web.WriteError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, otp.ErrNoPendingVerification):
		web.WriteError(w, http.StatusBadRequest, "no pending verification, request a new code")
	case errors.Is(err, otp.ErrExpired):
		web.WriteError(w, http.StatusBadRequest, "verification code expired, request a new code")
	case errors.Is(err, otp.ErrMismatch):
		web.WriteError(w, http.StatusBadRequest, "invalid verification code")
	case errors.Is(err, otp.ErrTooManyAttempts):
		web.WriteError(w, http.StatusTooManyRequests, "too many attempts, request a new code")
	case errors.Is(err, ErrElevationDisabled):
		web.WriteError(w, http.StatusServiceUnavailable, "admin elevation is not configured")
	case errors.Is(err, otp.ErrDeliveryFailure):
		h.logger.Error("elevation_delivery_failed", map[string]any{"error": err.Error()})
		observability.CaptureError(r, err)
		web.WriteError(w, http.StatusInternalServerError, "failed to deliver verification code")
	default:
		h.logger.Error("auth_request_failed", map[string]any{"path": r.URL.Path, "error": err.Error()})
		observability.CaptureError(r, err)
		web.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
