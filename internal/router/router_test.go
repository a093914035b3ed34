package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/coupon-lot-qc/internal/config"
	"github.com/iliyamo/coupon-lot-qc/internal/handler"
	"github.com/iliyamo/coupon-lot-qc/internal/lot"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/utils"
)

const secret = "router-secret"

// newServer registers the full surface with handlers that have no
// backing stores; only requests stopped by middleware are exercised.
func newServer() *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, Handlers{
		Health:  handler.NewHealthHandler(nil),
		Auth:    handler.NewAuthHandler(config.Config{JWTSecret: secret}, nil, nil),
		Users:   handler.NewUserHandler(nil, 4),
		Prizes:  handler.NewPrizeConfigHandler(nil),
		Batches: handler.NewBatchHandler(nil, nil, nil, lot.DefaultSettings()),
		Coupons: handler.NewCouponHandler(nil, nil, nil),
		QC:      handler.NewQCHandler(nil, nil),
		Logs:    handler.NewProductionLogHandler(nil),
	}, Options{JWTSecret: secret})
	return e
}

func call(t *testing.T, e *echo.Echo, method, path, role string) int {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		tok, err := utils.NewAccessToken(secret, 5, "ayu", role, 5)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

func TestHealthAndMetrics(t *testing.T) {
	e := newServer()
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusOK, call(t, e, http.MethodGet, "/metrics", ""))
}

func TestAPIRequiresToken(t *testing.T) {
	e := newServer()
	for _, p := range []string{"/api/me", "/api/batches", "/api/coupons", "/api/qc-validations", "/api/users"} {
		assert.Equal(t, http.StatusUnauthorized, call(t, e, http.MethodGet, p, ""), p)
	}
}

func TestRoleGuards(t *testing.T) {
	e := newServer()
	forbidden := []struct {
		method, path, role string
	}{
		{http.MethodGet, "/api/users", model.RoleOperator},
		{http.MethodPost, "/api/prize-config", model.RoleOperator},
		{http.MethodPost, "/api/coupons/generate", model.RoleQCStaff},
		{http.MethodPut, "/api/coupons/00042", model.RoleOperator},
		{http.MethodPost, "/api/qc-validations/batch/1/run", model.RoleOperator},
		{http.MethodPost, "/api/batches", model.RoleQCStaff},
		{http.MethodDelete, "/api/batches/2401", model.RoleOperator},
		{http.MethodPost, "/api/production-logs", model.RoleQCStaff},
	}
	for _, tc := range forbidden {
		assert.Equal(t, http.StatusForbidden, call(t, e, tc.method, tc.path, tc.role), "%s %s as %s", tc.method, tc.path, tc.role)
	}

	// allowed roles reach the handler, which rejects the empty body
	assert.Equal(t, http.StatusBadRequest, call(t, e, http.MethodPost, "/api/coupons/generate", model.RoleOperator))
	assert.Equal(t, http.StatusBadRequest, call(t, e, http.MethodPost, "/api/qc-validations/batch/x/run", model.RoleQCStaff))
	assert.Equal(t, http.StatusBadRequest, call(t, e, http.MethodPost, "/api/batches", model.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, call(t, e, http.MethodPut, "/api/coupons/00042?batch_id=x", model.RoleAdmin))
	assert.Equal(t, http.StatusBadRequest, call(t, e, http.MethodGet, "/api/production-logs/x", model.RoleQCStaff))
}
