package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const SessionCookieName = "session"

// TokenExtractor pulls a raw token out of a request. It returns ErrNoToken when the
// transport carries nothing and ErrTokenInvalid when it carries something malformed.
type TokenExtractor interface {
	Extract(r *http.Request) (string, error)
}

type CookieExtractor struct {
	Name string
}

func (e CookieExtractor) Extract(r *http.Request) (string, error) {
	name := e.Name
	if name == "" {
		name = SessionCookieName
	}

	cookie, err := r.Cookie(name)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return "", ErrNoToken
	}

	return strings.TrimSpace(cookie.Value), nil
}

type BearerExtractor struct{}

func (BearerExtractor) Extract(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", ErrNoToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrTokenInvalid
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrTokenInvalid
	}

	return token, nil
}

// ChainExtractor tries each extractor in order; the first transport that carries a token wins.
type ChainExtractor []TokenExtractor

func (c ChainExtractor) Extract(r *http.Request) (string, error) {
	for _, extractor := range c {
		token, err := extractor.Extract(r)
		if errors.Is(err, ErrNoToken) {
			continue
		}
		return token, err
	}
	return "", ErrNoToken
}

// CookieOptions describes the session cookie. Development relaxes Secure and SameSite
// so the site works over plain http on localhost.
type CookieOptions struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

func NewCookieOptions(development bool, maxAge time.Duration) CookieOptions {
	options := CookieOptions{
		Name:     SessionCookieName,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
	if development {
		options.Secure = false
		options.SameSite = http.SameSiteLaxMode
	}
	return options
}

func (o CookieOptions) Set(w http.ResponseWriter, token Token) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    token.Value,
		Path:     "/",
		MaxAge:   int(o.MaxAge.Seconds()),
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	})
}

func (o CookieOptions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     o.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	})
}
