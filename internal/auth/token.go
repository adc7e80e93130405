package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultSessionTTL  = 15 * 24 * time.Hour
	DefaultElevatedTTL = 30 * time.Minute
	tokenIssuer        = "portfolio-api"
)

// Claims is the decoded identity attached to an authenticated request.
type Claims struct {
	SubjectID string
	Role      Role
	Elevated  bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Token struct {
	Value     string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Role     Role `json:"role"`
	Elevated bool `json:"elv,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies stateless HS256 tokens. Nothing is stored server-side,
// so a token stays valid until exp even after logout.
type TokenService struct {
	secret      []byte
	sessionTTL  time.Duration
	elevatedTTL time.Duration
	now         func() time.Time
}

func NewTokenService(secret string, sessionTTL, elevatedTTL time.Duration) *TokenService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	if elevatedTTL <= 0 {
		elevatedTTL = DefaultElevatedTTL
	}

	return &TokenService{
		secret:      []byte(secret),
		sessionTTL:  sessionTTL,
		elevatedTTL: elevatedTTL,
		now:         time.Now,
	}
}

func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *TokenService) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *TokenService) Issue(subjectID string, role Role) (Token, error) {
	return s.sign(subjectID, role, false, s.sessionTTL)
}

// IssueElevated mints a short-lived admin token after a successful OTP check.
func (s *TokenService) IssueElevated(subjectID string) (Token, error) {
	return s.sign(subjectID, RoleAdmin, true, s.elevatedTTL)
}

func (s *TokenService) sign(subjectID string, role Role, elevated bool, ttl time.Duration) (Token, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" || !role.Valid() {
		return Token{}, ErrInvalidInput
	}

	// Claims carry whole seconds, so the window starts at the issue second.
	now := s.now().UTC().Truncate(time.Second)
	expiresAt := jwt.NewNumericDate(now.Add(ttl))
	claims := tokenClaims{
		Role:     role,
		Elevated: elevated,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: expiresAt,
		},
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign jwt: %w", err)
	}

	return Token{Value: encoded, ExpiresAt: expiresAt.Time}, nil
}

func (s *TokenService) Verify(raw string) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, ErrTokenInvalid
	}

	var claims tokenClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !token.Valid || strings.TrimSpace(claims.Subject) == "" || !claims.Role.Valid() {
		return Claims{}, ErrTokenInvalid
	}
	if claims.Elevated && claims.Role != RoleAdmin {
		return Claims{}, ErrTokenInvalid
	}

	out := Claims{
		SubjectID: claims.Subject,
		Role:      claims.Role,
		Elevated:  claims.Elevated,
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time.UTC()
	}

	return out, nil
}
