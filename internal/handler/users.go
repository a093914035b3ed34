package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/repository"
	"github.com/iliyamo/coupon-lot-qc/internal/utils"
)

// UserHandler serves the admin user management endpoints.
type UserHandler struct {
	Users      UserStore
	BcryptCost int
}

func NewUserHandler(u UserStore, bcryptCost int) *UserHandler {
	return &UserHandler{Users: u, BcryptCost: bcryptCost}
}

type userReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Password string `json:"password"`
	IsActive *bool  `json:"is_active"`
}

// List returns users, optionally filtered by ?role= and ?is_active=.
func (h *UserHandler) List(c echo.Context) error {
	active, ok := queryBool(c, "is_active")
	if !ok {
		return badRequest(c, "invalid is_active")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	users, err := h.Users.List(ctx, repository.UserFilter{Role: c.QueryParam("role"), IsActive: active})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// Get returns one user by username.
func (h *UserHandler) Get(c echo.Context) error {
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	u, err := h.Users.GetByUsername(ctx, c.Param("username"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Create adds a user.  A password is optional; accounts without one
// cannot log in until it is set.
func (h *UserHandler) Create(c echo.Context) error {
	var req userReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	u := &model.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		FullName: strings.TrimSpace(req.FullName),
		Role:     req.Role,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if u.Username == "" || u.FullName == "" {
		return badRequest(c, "username and full_name required")
	}
	if !model.ValidRole(u.Role) {
		return badRequest(c, "role must be admin, operator or qc_staff")
	}
	if req.Password != "" {
		hash, err := h.hash(req.Password)
		if err != nil {
			return badRequest(c, err.Error())
		}
		u.PasswordHash = hash
	}

	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	if err := h.Users.Create(ctx, u); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Update changes the editable fields of a user.  Omitted fields keep
// their current value.
func (h *UserHandler) Update(c echo.Context) error {
	var req userReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, c.Param("username"))
	if err != nil {
		return respondError(c, err)
	}
	if s := strings.TrimSpace(req.Email); s != "" {
		u.Email = s
	}
	if s := strings.TrimSpace(req.FullName); s != "" {
		u.FullName = s
	}
	if req.Role != "" {
		if !model.ValidRole(req.Role) {
			return badRequest(c, "role must be admin, operator or qc_staff")
		}
		u.Role = req.Role
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	u.PasswordHash = ""
	if req.Password != "" {
		if u.PasswordHash, err = h.hash(req.Password); err != nil {
			return badRequest(c, err.Error())
		}
	}
	if err := h.Users.Update(ctx, u); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Delete deactivates a user.
func (h *UserHandler) Delete(c echo.Context) error {
	ctx, cancel := withTimeout(c, dbTimeout)
	defer cancel()
	if err := h.Users.Deactivate(ctx, c.Param("username")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deactivated"})
}

func (h *UserHandler) hash(plain string) (string, error) {
	if err := utils.CheckPassword(plain); err != nil {
		return "", err
	}
	return utils.HashPassword(plain, h.BcryptCost)
}
