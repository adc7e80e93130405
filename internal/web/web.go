// Package web holds the JSON request and response helpers shared by the HTTP handlers.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

const MaxJSONBodyBytes = 1 << 20

var (
	allowedURLChars = regexp.MustCompile(`^[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+$`)
	allowedHost     = regexp.MustCompile(`^[A-Za-z0-9.-]+$`)
)

const maxLinkBytes = 500

// InputError is a client mistake whose message is safe to return verbatim.
type InputError struct {
	Message string
}

func (e InputError) Error() string {
	return e.Message
}

func Invalid(format string, args ...any) error {
	return InputError{Message: fmt.Sprintf(format, args...)}
}

// IsInputError reports whether err carries a client-facing message.
func IsInputError(err error) (string, bool) {
	var inputErr InputError
	if errors.As(err, &inputErr) {
		return inputErr.Message, true
	}
	return "", false
}

// DecodeJSON reads a single JSON object into dst and writes a 400 when it cannot.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"message": message})
}

// CheckLink validates an absolute http(s) link. Empty values pass unless required.
func CheckLink(field, value string, required bool) error {
	if value == "" {
		if required {
			return Invalid("%s is required", field)
		}
		return nil
	}
	if len(value) > maxLinkBytes || !isASCII(value) || !allowedURLChars.MatchString(value) {
		return Invalid("%s contains invalid characters", field)
	}

	parsed, err := url.ParseRequestURI(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Invalid("%s must be a valid link", field)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Invalid("%s must start with http or https", field)
	}
	if parsed.User != nil || !allowedHost.MatchString(parsed.Hostname()) {
		return Invalid("%s host is invalid", field)
	}
	return nil
}

// CheckText trims value in place and enforces a byte limit.
func CheckText(field string, value *string, maxBytes int, required bool) error {
	*value = strings.TrimSpace(*value)
	if *value == "" {
		if required {
			return Invalid("%s is required", field)
		}
		return nil
	}
	if len(*value) > maxBytes || strings.ContainsRune(*value, '\x00') {
		return Invalid("%s is invalid", field)
	}
	return nil
}

func isASCII(value string) bool {
	for i := 0; i < len(value); i++ {
		if value[i] < 32 || value[i] > 126 {
			return false
		}
	}
	return true
}
