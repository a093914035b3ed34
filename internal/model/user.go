package model

import "time"

// Roles carried in the `users.role` column and the JWT "role" claim.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
	RoleQCStaff  = "qc_staff"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == RoleAdmin || r == RoleOperator || r == RoleQCStaff
}

// User represents an application user record as stored in the `users`
// table.  Deleting a user only clears IsActive so that batches, coupons
// and QC records keep a valid author.
type User struct {
	ID           uint64    `json:"user_id"`         // users.user_id
	Username     string    `json:"username"`        // users.username (unique)
	Email        string    `json:"email,omitempty"` // users.email (nullable)
	FullName     string    `json:"full_name"`       // users.full_name
	PasswordHash string    `json:"-"`               // users.password_hash, bcrypt
	Role         string    `json:"role"`            // admin | operator | qc_staff
	IsActive     bool      `json:"is_active"`       // users.is_active
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the token handed to the client is stored.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
