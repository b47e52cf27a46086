package api

import (
	"errors"
	"net/http"

	service "github.com/okian/divari/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("too many recalculation requests")

	errInvalidSeason = errors.New("Invalid season")
)

// Error codes returned in the code field of error bodies.
const (
	codeInvalidInput  = "invalid_input"
	codeInvalidSeason = "invalid_season"
	codeNotFound      = "not_found"
	codeRateLimited   = "rate_limited"
	codeUnavailable   = "unavailable"
	codeInternal      = "internal_error"
)

// statusFor maps service errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, codeInvalidInput
	case errors.Is(err, service.ErrSeasonNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, codeUnavailable
	}
	return http.StatusInternalServerError, codeInternal
}
