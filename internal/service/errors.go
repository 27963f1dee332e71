package service

import (
	"errors"
	"net/http"

	"github.com/ShayBox/VRC-BAN/internal/core"
)

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	StatusCode int
	Wrapped    error
}

func (e HTTPError) Error() string {
	return e.Wrapped.Error()
}

func (e HTTPError) Unwrap() error {
	return e.Wrapped
}

func httpError(statusCode int, err error) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Wrapped:    err,
	}
}

// StatusCode returns the HTTP status an API handler should answer err with.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	switch core.KindOf(err) {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindTransient, core.KindUnauthorized:
		return http.StatusServiceUnavailable
	case core.KindAuthRejected, core.KindSecondFactorFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
