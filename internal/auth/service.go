package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"sync"
)

var usernameRegex = regexp.MustCompile(`^[a-z0-9_.-]{3,32}$`)

const (
	minPasswordBytes = 6
	maxEmailBytes    = 254
)

// Elevator runs the OTP step for admin elevation.
type Elevator interface {
	Issue(ctx context.Context, target string) error
	Verify(ctx context.Context, target, code string) error
}

type Service struct {
	store     CredentialStore
	hasher    PasswordHasher
	tokens    *TokenService
	elevation Elevator

	dummyOnce sync.Once
	dummyHash string
}

func NewService(store CredentialStore, hasher PasswordHasher, tokens *TokenService) *Service {
	return &Service{
		store:  store,
		hasher: hasher,
		tokens: tokens,
	}
}

func (s *Service) WithElevation(elevation Elevator) *Service {
	s.elevation = elevation
	return s
}

func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Signup creates a standard account and logs it in.
func (s *Service) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	username, email, err := normalizeIdentity(input.Username, input.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if err := validatePassword(input.Password); err != nil {
		return AuthResult{}, err
	}

	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	account, err := s.store.Create(ctx, NewAccount{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	})
	if err != nil {
		return AuthResult{}, err
	}

	return s.session(account)
}

func (s *Service) Login(ctx context.Context, username, password string) (AuthResult, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return AuthResult{}, invalid("username and password are required")
	}

	account, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// Keep timing equal to a wrong-password attempt.
			s.hasher.Verify(password, s.dummy())
			return AuthResult{}, ErrAccountNotFound
		}
		return AuthResult{}, err
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	return s.session(account)
}

func (s *Service) Me(ctx context.Context, subjectID string) (Account, error) {
	return s.store.FindByID(ctx, subjectID)
}

// BootstrapAdmin upserts the admin account from deployment settings. Empty settings are a no-op.
func (s *Service) BootstrapAdmin(ctx context.Context, username, email, password string) error {
	if strings.TrimSpace(username) == "" && strings.TrimSpace(email) == "" && password == "" {
		return nil
	}
	if strings.TrimSpace(username) == "" || strings.TrimSpace(email) == "" || password == "" {
		return fmt.Errorf("ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD are required together")
	}

	username, email, err := normalizeIdentity(username, email)
	if err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = s.store.UpsertAdmin(ctx, NewAccount{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleAdmin,
	})
	return err
}

// RequestElevation sends a one-time code to the admin's registered email.
func (s *Service) RequestElevation(ctx context.Context, subjectID string) (string, error) {
	if s.elevation == nil {
		return "", ErrElevationDisabled
	}

	account, err := s.adminAccount(ctx, subjectID)
	if err != nil {
		return "", err
	}

	if err := s.elevation.Issue(ctx, account.Email); err != nil {
		return "", err
	}

	return maskEmail(account.Email), nil
}

// CompleteElevation consumes the code and mints an elevated bearer token.
func (s *Service) CompleteElevation(ctx context.Context, subjectID, code string) (ElevationResult, error) {
	if s.elevation == nil {
		return ElevationResult{}, ErrElevationDisabled
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return ElevationResult{}, invalid("code is required")
	}

	account, err := s.adminAccount(ctx, subjectID)
	if err != nil {
		return ElevationResult{}, err
	}

	if err := s.elevation.Verify(ctx, account.Email, code); err != nil {
		return ElevationResult{}, err
	}

	token, err := s.tokens.IssueElevated(account.ID)
	if err != nil {
		return ElevationResult{}, err
	}

	return ElevationResult{Token: token.Value, TokenType: "Bearer", ExpiresAt: token.ExpiresAt}, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.store.List(ctx)
}

func (s *Service) ChangeRole(ctx context.Context, actorID, accountID string, role Role) (Account, error) {
	if !role.Valid() {
		return Account{}, invalid("role is invalid")
	}
	if actorID == accountID {
		return Account{}, invalid("cannot change your own role")
	}
	return s.store.UpdateRole(ctx, accountID, role)
}

func (s *Service) adminAccount(ctx context.Context, subjectID string) (Account, error) {
	account, err := s.store.FindByID(ctx, subjectID)
	if err != nil {
		return Account{}, err
	}
	// The role may have been revoked after the session token was issued.
	if account.Role != RoleAdmin {
		return Account{}, ErrAccessDenied
	}
	return account, nil
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return ErrDuplicateAccount
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return ErrDuplicateAccount
	} else if !errors.Is(err, ErrAccountNotFound) {
		return err
	}

	return nil
}

func (s *Service) session(account Account) (AuthResult, error) {
	token, err := s.tokens.Issue(account.ID, account.Role)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Account: account, Token: token.Value, ExpiresAt: token.ExpiresAt}, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("dummy-password-for-timing")
	})
	return s.dummyHash
}

func normalizeIdentity(username, email string) (string, string, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" || email == "" {
		return "", "", invalid("username, email and password are required")
	}
	if !usernameRegex.MatchString(username) {
		return "", "", invalid("username format is invalid")
	}
	if len(email) > maxEmailBytes {
		return "", "", invalid("email format is invalid")
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email {
		return "", "", invalid("email format is invalid")
	}

	return username, email, nil
}

func validatePassword(password string) error {
	if password == "" {
		return invalid("username, email and password are required")
	}
	if len(password) < minPasswordBytes || len(password) > maxPasswordBytes {
		return invalid("password must be between 6 and 72 bytes")
	}
	return nil
}

func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}
