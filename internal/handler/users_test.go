package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/utils"
)

func TestCreateUser(t *testing.T) {
	users := newFakeUsers()
	h := NewUserHandler(users, 4)

	rec := serve(t, h.Create, request{method: http.MethodPost, route: "/users", target: "/users",
		body: `{"username":"Sari","full_name":"Sari W","role":"qc_staff","password":"longenough"}`})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	out := decode(t, rec)
	assert.Equal(t, "sari", out["username"])
	assert.Equal(t, true, out["is_active"])

	stored, err := users.GetByUsername(t.Context(), "sari")
	require.NoError(t, err)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash, "longenough"))

	rec = serve(t, h.Create, request{method: http.MethodPost, route: "/users", target: "/users",
		body: `{"username":"sari","full_name":"Again","role":"qc_staff"}`})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateUserValidation(t *testing.T) {
	h := NewUserHandler(newFakeUsers(), 4)
	for name, body := range map[string]string{
		"bad role":       `{"username":"x","full_name":"X","role":"owner"}`,
		"short password": `{"username":"x","full_name":"X","role":"admin","password":"short"}`,
		"no full name":   `{"username":"x","role":"admin"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, h.Create, request{method: http.MethodPost, route: "/users", target: "/users", body: body})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestUpdateAndDeactivateUser(t *testing.T) {
	hash, err := utils.HashPassword("original-pw", 4)
	require.NoError(t, err)
	users := newFakeUsers(&model.User{ID: 3, Username: "tono", FullName: "Tono", Role: model.RoleOperator, PasswordHash: hash, IsActive: true})
	h := NewUserHandler(users, 4)

	rec := serve(t, h.Update, request{method: http.MethodPut, route: "/users/:username", target: "/users/tono",
		body: `{"role":"qc_staff"}`})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	u, _ := users.GetByUsername(t.Context(), "tono")
	assert.Equal(t, model.RoleQCStaff, u.Role)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "original-pw"))

	rec = serve(t, h.Delete, request{method: http.MethodDelete, route: "/users/:username", target: "/users/tono"})
	require.Equal(t, http.StatusOK, rec.Code)
	u, _ = users.GetByUsername(t.Context(), "tono")
	assert.False(t, u.IsActive)

	rec = serve(t, h.Delete, request{method: http.MethodDelete, route: "/users/:username", target: "/users/nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUsersFilters(t *testing.T) {
	users := newFakeUsers(
		&model.User{ID: 1, Username: "a", Role: model.RoleAdmin, IsActive: true},
		&model.User{ID: 2, Username: "b", Role: model.RoleOperator, IsActive: false},
	)
	h := NewUserHandler(users, 4)

	rec := serve(t, h.List, request{method: http.MethodGet, route: "/users", target: "/users?is_active=false"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"b"`)
	assert.NotContains(t, rec.Body.String(), `"username":"a"`)

	rec = serve(t, h.List, request{method: http.MethodGet, route: "/users", target: "/users?is_active=maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
