package auth

import "time"

// User is a console account. Accounts live in gateway Postgres, not in the
// upstream system, and are always bound to exactly one tenant.
type User struct {
	ID           int64
	TenantID     string
	Email        string
	Name         string
	Role         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
