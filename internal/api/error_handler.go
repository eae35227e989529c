package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidTrackingCode):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrTrackingNotFound):
		return http.StatusNotFound, "tracking record not found"
	case errors.Is(err, domain.ErrSweepInProgress):
		return http.StatusConflict, "a sweep is already running"
	case errors.Is(err, domain.ErrAuthentication):
		log.Warn().Err(err).Str("path", c.Path()).Msg("carrier credential missing")
		return http.StatusServiceUnavailable, "carrier credentials are not configured"
	case errors.Is(err, domain.ErrUpstream), errors.Is(err, domain.ErrValidation):
		log.Warn().Err(err).Str("path", c.Path()).Msg("carrier request failed")
		return http.StatusBadGateway, "carrier request failed"
	}

	// Unknown provider is a deployment error; it falls through to a 500 with
	// everything else unexpected.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
