package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/iliyamo/coupon-lot-qc/internal/model"
)

const userColumns = `user_id, username, COALESCE(email, ''), full_name, password_hash, role, is_active, created_at, updated_at`

// UserRepo encapsulates database operations for the users table.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo constructs a UserRepo given a DB handle.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// UserFilter narrows List.
type UserFilter struct {
	Role     string
	IsActive *bool
}

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.Role,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func normalizeUsername(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Create inserts u and populates its ID.  PasswordHash must already be a
// bcrypt hash (or empty for accounts that cannot log in).  A taken
// username yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Username = normalizeUsername(u.Username)
	const q = `INSERT INTO users (username, email, full_name, password_hash, role, is_active) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, u.Username, nullString(u.Email), u.FullName, u.PasswordHash, u.Role, u.IsActive)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return errors.Wrap(err, "user: insert")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "user: last insert id")
	}
	u.ID = uint64(id)
	return nil
}

func (r *UserRepo) get(ctx context.Context, clause string, arg any) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+clause+` LIMIT 1`, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "user: select")
	}
	return u, nil
}

// GetByUsername fetches a user by normalized username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.get(ctx, "username = ?", normalizeUsername(username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.get(ctx, "user_id = ?", id)
}

// List returns users matching f ordered by username.
func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]model.User, error) {
	var w where
	if f.Role != "" {
		w.add("role = ?", f.Role)
	}
	if f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users`+w.String()+` ORDER BY username`, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "user: list")
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, errors.Wrap(err, "user: scan")
		}
		out = append(out, *u)
	}
	return out, errors.Wrap(rows.Err(), "user: rows")
}

// Update writes email, full name, role and active flag of the user keyed
// by username.  The password hash is only replaced when non-empty.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	q := `UPDATE users SET email = ?, full_name = ?, role = ?, is_active = ?`
	args := []any{nullString(u.Email), u.FullName, u.Role, u.IsActive}
	if u.PasswordHash != "" {
		q += `, password_hash = ?`
		args = append(args, u.PasswordHash)
	}
	q += ` WHERE username = ?`
	args = append(args, normalizeUsername(u.Username))
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return errors.Wrap(err, "user: update")
	}
	return expectOne(res)
}

// Deactivate clears is_active; user rows are never deleted because
// batches, coupons and QC records reference them.
func (r *UserRepo) Deactivate(ctx context.Context, username string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = 0 WHERE username = ?`, normalizeUsername(username))
	if err != nil {
		return errors.Wrap(err, "user: deactivate")
	}
	return expectOne(res)
}
