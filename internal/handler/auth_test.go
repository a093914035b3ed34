package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/coupon-lot-qc/internal/config"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/utils"
)

func newAuth(t *testing.T, active bool) (*AuthHandler, *fakeTokens) {
	t.Helper()
	hash, err := utils.HashPassword("correct-horse", 4)
	require.NoError(t, err)
	users := newFakeUsers(&model.User{ID: 7, Username: "budi", FullName: "Budi", Role: model.RoleOperator, PasswordHash: hash, IsActive: active})
	tokens := newFakeTokens()
	cfg := config.Config{JWTSecret: testSecret, AccessTTLMin: 5, RefreshTTLDays: 1}
	return NewAuthHandler(cfg, users, tokens), tokens
}

func login(t *testing.T, h *AuthHandler, body string) map[string]any {
	t.Helper()
	rec := serve(t, h.Login, request{method: http.MethodPost, route: "/login", target: "/login", body: body})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode(t, rec)
}

func TestLoginIssuesTokens(t *testing.T) {
	h, tokens := newAuth(t, true)
	out := login(t, h, `{"username":" Budi ","password":"correct-horse"}`)

	access := out["access"].(map[string]any)["token"].(string)
	claims, err := utils.ParseAccessToken(testSecret, access)
	require.NoError(t, err)
	assert.Equal(t, "budi", claims.Username)
	assert.Equal(t, model.RoleOperator, claims.Role)

	refresh := out["refresh"].(map[string]any)["token"].(string)
	assert.Equal(t, uint64(7), tokens.owners[utils.HashRefreshRaw(refresh)])
	assert.NotContains(t, out["user"], "password_hash")
}

func TestLoginRejects(t *testing.T) {
	h, _ := newAuth(t, true)
	cases := map[string]struct {
		body string
		code int
	}{
		"missing fields": {`{"username":"budi"}`, http.StatusBadRequest},
		"wrong password": {`{"username":"budi","password":"nope-nope"}`, http.StatusUnauthorized},
		"unknown user":   {`{"username":"ghost","password":"correct-horse"}`, http.StatusUnauthorized},
		"bad json":       {`{`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, h.Login, request{method: http.MethodPost, route: "/login", target: "/login", body: tc.body})
			assert.Equal(t, tc.code, rec.Code)
		})
	}

	inactive, _ := newAuth(t, false)
	rec := serve(t, inactive.Login, request{method: http.MethodPost, route: "/login", target: "/login",
		body: `{"username":"budi","password":"correct-horse"}`})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshRotatesToken(t *testing.T) {
	h, tokens := newAuth(t, true)
	first := login(t, h, `{"username":"budi","password":"correct-horse"}`)["refresh"].(map[string]any)["token"].(string)

	rec := serve(t, h.Refresh, request{method: http.MethodPost, route: "/refresh", target: "/refresh",
		body: `{"refresh_token":"` + first + `"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, tokens.revoked[utils.HashRefreshRaw(first)])

	// the old token is spent
	rec = serve(t, h.Refresh, request{method: http.MethodPost, route: "/refresh", target: "/refresh",
		body: `{"refresh_token":"` + first + `"}`})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	h, tokens := newAuth(t, true)
	raw := login(t, h, `{"username":"budi","password":"correct-horse"}`)["refresh"].(map[string]any)["token"].(string)

	rec := serve(t, h.Logout, request{method: http.MethodPost, route: "/logout", target: "/logout",
		body: `{"refresh_token":"` + raw + `"}`})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, tokens.revoked[utils.HashRefreshRaw(raw)])

	rec = serve(t, h.Logout, request{method: http.MethodPost, route: "/logout", target: "/logout", body: `{}`})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// with a bearer token and no body every session of the user ends
	other := login(t, h, `{"username":"budi","password":"correct-horse"}`)["refresh"].(map[string]any)["token"].(string)
	rec = serve(t, h.Logout, request{method: http.MethodPost, route: "/logout", target: "/logout", body: `{}`, role: model.RoleOperator})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, tokens.revoked[utils.HashRefreshRaw(other)])
}

func TestMe(t *testing.T) {
	h, _ := newAuth(t, true)
	rec := serve(t, h.Me, request{method: http.MethodGet, route: "/me", target: "/me", role: model.RoleOperator})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "budi", decode(t, rec)["username"])
}
