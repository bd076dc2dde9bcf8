package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klinika/klinika/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	RecordLogin(ctx context.Context, sessionID string, userID int64, expiresAt time.Time, ip, ua string) error
	RecordLogout(ctx context.Context, sessionID string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, email, name, role, password_hash, is_active, created_at, updated_at
		 FROM users WHERE email = $1`, email)
	var user User
	err := row.Scan(&user.ID, &user.TenantID, &user.Email, &user.Name, &user.Role,
		&user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// RecordLogin persists the login session for auditing. Session state itself
// lives in Redis; this row only tracks who logged in from where.
func (r *PGRepository) RecordLogin(ctx context.Context, sessionID string, userID int64, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_sessions (id, user_id, created_at, expires_at, ip, ua)
		 VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`,
		sessionID, userID, expiresAt.UTC(), ip, ua)
	return err
}

// RecordLogout marks the session row as ended.
func (r *PGRepository) RecordLogout(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE login_sessions SET ended_at = NOW() WHERE id = $1`, sessionID)
	return err
}

var _ Repository = (*PGRepository)(nil)
