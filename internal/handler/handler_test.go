package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/coupon-lot-qc/internal/middleware"
	"github.com/iliyamo/coupon-lot-qc/internal/model"
	"github.com/iliyamo/coupon-lot-qc/internal/repository"
	"github.com/iliyamo/coupon-lot-qc/internal/utils"
)

const testSecret = "handler-secret"

// request describes one call through a single echo route.  A non-empty
// role authenticates the call as user 7 "budi".
type request struct {
	method string
	route  string
	target string
	body   string
	role   string
}

func serve(t *testing.T, h echo.HandlerFunc, r request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var mws []echo.MiddlewareFunc
	if r.role != "" {
		mws = append(mws, middleware.JWTAuth(testSecret))
	}
	e.Add(r.method, r.route, h, mws...)

	req := httptest.NewRequest(r.method, r.target, strings.NewReader(r.body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if r.role != "" {
		tok, err := utils.NewAccessToken(testSecret, 7, "budi", r.role, 5)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type fakeUsers struct {
	mu     sync.Mutex
	byName map[string]*model.User
	nextID uint64
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{byName: map[string]*model.User{}, nextID: 100}
	for _, u := range users {
		f.byName[u.Username] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Username = strings.ToLower(u.Username)
	if _, ok := f.byName[u.Username]; ok {
		return repository.ErrDuplicate
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.byName[u.Username] = &cp
	return nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, name string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byName[strings.ToLower(name)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byName {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context, flt repository.UserFilter) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.byName {
		if flt.Role != "" && u.Role != flt.Role {
			continue
		}
		if flt.IsActive != nil && u.IsActive != *flt.IsActive {
			continue
		}
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.byName[u.Username]
	if !ok {
		return repository.ErrNotFound
	}
	hash := cur.PasswordHash
	*cur = *u
	if u.PasswordHash == "" {
		cur.PasswordHash = hash
	}
	return nil
}

func (f *fakeUsers) Deactivate(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byName[name]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = false
	return nil
}

type fakeTokens struct {
	mu      sync.Mutex
	owners  map[string]uint64
	revoked map[string]bool
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{owners: map[string]uint64{}, revoked: map[string]bool{}}
}

func (f *fakeTokens) StoreRefresh(_ context.Context, uid uint64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[hash] = uid
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.owners[hash]
	if !ok || f.revoked[hash] {
		return 0, repository.ErrNotFound
	}
	return uid, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[hash] = true
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, uid uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, owner := range f.owners {
		if owner == uid {
			f.revoked[h] = true
		}
	}
	return nil
}
