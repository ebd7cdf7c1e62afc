package menuapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
	"github.com/mattn/go-runewidth"
)

// Sentinels for errors.Is checks. Every *APIError is marked with exactly one.
var (
	ErrNotFound     = errors.New("menu not found")
	ErrConflict     = errors.New("menu change conflicts with current state")
	ErrUnauthorized = errors.New("not authorized")
	ErrRemote       = errors.New("menu service error")
)

// APIError describes a non-2xx response from the menu service.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// newAPIError builds the error for a failed response and marks it with the
// sentinel matching its status code.
func newAPIError(status int, method, path string, body []byte) error {
	apiErr := &APIError{
		Status:  status,
		Method:  method,
		Path:    path,
		Message: errorMessage(body),
	}
	return errors.Mark(apiErr, sentinelFor(status))
}

func sentinelFor(status int) error {
	switch status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	default:
		return ErrRemote
	}
}

// errorMessage extracts a human-readable message from an error body.
// It understands {"message": "..."}, {"message": ["...", "..."]} and
// {"error": "..."}, and falls back to the raw text.
func errorMessage(body []byte) string {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return ""
	}

	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Message) > 0 {
			var single string
			if json.Unmarshal(payload.Message, &single) == nil && single != "" {
				return single
			}
			var many []string
			if json.Unmarshal(payload.Message, &many) == nil && len(many) > 0 {
				return strings.Join(many, "; ")
			}
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	// Cut by display width so multi-byte text is never split mid-rune.
	const maxWidth = 200
	return runewidth.Truncate(text, maxWidth, "…")
}
