package handler // package handler contains the HTTP handlers of the API

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/coupon-lot-qc/internal/lot"
	"github.com/iliyamo/coupon-lot-qc/internal/repository"
	"github.com/iliyamo/coupon-lot-qc/internal/service"
)

// dbTimeout bounds plain data access; generation and QC get longer.
const (
	dbTimeout  = 5 * time.Second
	lotTimeout = 60 * time.Second
)

func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// respondError maps domain and storage errors to a status and the
// {"error": "..."} body.  Unexpected errors are logged and hidden.
func respondError(c echo.Context, err error) error {
	var cfgErr *lot.ConfigError
	var already *lot.AlreadyGeneratedError
	switch {
	case errors.As(err, &cfgErr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": cfgErr.Error()})
	case errors.As(err, &already):
		return c.JSON(http.StatusConflict, echo.Map{"error": already.Error()})
	case errors.Is(err, service.ErrBatchNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "batch not found"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrInvalidTransition), errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": service.ErrInvalidTransition.Error()})
	case errors.Is(err, repository.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout"})
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// paramUint parses a positive integer path parameter.
func paramUint(c echo.Context, name string) (uint64, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	return v, err == nil && v > 0
}

// queryUint parses an optional positive integer query parameter; 0 when
// absent.  ok is false for malformed values.
func queryUint(c echo.Context, name string) (uint64, bool) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

// queryInt parses an optional integer query parameter into a pointer.
func queryInt(c echo.Context, name string) (*int, bool) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil, true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// queryBool parses an optional boolean query parameter into a pointer.
func queryBool(c echo.Context, name string) (*bool, bool) {
	s := strings.TrimSpace(c.QueryParam(name))
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, false
	}
	return &v, true
}

// nonNil renders a nil slice as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
