package learnapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoContent is returned when a 2xx reply carries no entity: an empty body or
// null envelope data. Collection endpoints map it to an empty list instead.
var ErrNoContent = errors.New("backend returned no content")

// APIError is returned for every non-2xx backend response.
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("learnapi: %s returned %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("learnapi: %s returned %d: %s", e.Path, e.StatusCode, e.Message)
}

func newAPIError(status int, path string, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Path: path}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Message = strings.TrimSpace(payload.Message)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(payload.Error)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsAbsent reports whether err means the entity does not exist: a backend 404
// or a reply without content.
func IsAbsent(err error) bool {
	return IsNotFound(err) || errors.Is(err, ErrNoContent)
}

// IsUnauthorized reports whether the backend rejected the session.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized) || hasStatus(err, http.StatusForbidden)
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}
	return false
}
