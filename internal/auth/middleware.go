package auth

import (
	"context"
	"errors"
	"net/http"

	"portfolio-api/internal/web"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

type TokenVerifier interface {
	Verify(raw string) (Claims, error)
}

func ContextWithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(Claims)
	return claims, ok
}

// Authenticate verifies the extracted token and attaches its claims to the request context.
func Authenticate(verifier TokenVerifier, extractor TokenExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := extractor.Extract(r)
			if err != nil {
				if errors.Is(err, ErrNoToken) {
					web.WriteError(w, http.StatusUnauthorized, "no token provided")
					return
				}
				web.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			claims, err := verifier.Verify(raw)
			if err != nil {
				if errors.Is(err, ErrTokenExpired) {
					web.WriteError(w, http.StatusUnauthorized, "token expired")
					return
				}
				web.WriteError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// Require rejects requests whose attached claims do not satisfy capability.
func Require(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				web.WriteError(w, http.StatusUnauthorized, "no token provided")
				return
			}
			if !Allows(claims, capability) {
				web.WriteError(w, http.StatusForbidden, "access denied")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Guard bundles both gates for route registration.
type Guard struct {
	verifier  TokenVerifier
	extractor TokenExtractor
}

func NewGuard(verifier TokenVerifier, extractor TokenExtractor) *Guard {
	return &Guard{verifier: verifier, extractor: extractor}
}

func (g *Guard) Protect(capability Capability, next http.Handler) http.Handler {
	return Authenticate(g.verifier, g.extractor)(Require(capability)(next))
}

func (g *Guard) ProtectFunc(capability Capability, next http.HandlerFunc) http.Handler {
	return g.Protect(capability, next)
}
