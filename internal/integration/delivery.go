package integration

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Delivery statuses.
const (
	StatusQueued    = "queued"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Delivery is one outbound integration message (SMS, e-invoice, Telegram).
type Delivery struct {
	ID        uuid.UUID
	TenantID  string
	Channel   string
	RefKey    string
	Target    string
	Payload   map[string]any
	Status    string
	Error     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ErrDuplicateDelivery indicates the ref key was already dispatched.
var ErrDuplicateDelivery = errors.New("integration: delivery already dispatched")

// DeliveryLog persists outbound messages in gateway Postgres so dispatches
// survive worker restarts and duplicates are rejected per (tenant, channel,
// ref key).
type DeliveryLog struct {
	pool *pgxpool.Pool
}

// NewDeliveryLog constructs the log.
func NewDeliveryLog(pool *pgxpool.Pool) *DeliveryLog {
	return &DeliveryLog{pool: pool}
}

// Insert records a queued delivery. A unique violation on (tenant_id,
// channel, ref_key) maps to ErrDuplicateDelivery.
func (l *DeliveryLog) Insert(ctx context.Context, d Delivery) error {
	if l == nil || l.pool == nil {
		return errors.New("integration: delivery log not initialised")
	}
	payloadJSON, err := json.Marshal(d.Payload)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO integration_deliveries (id, tenant_id, channel, ref_key, target, payload, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		d.ID, d.TenantID, d.Channel, d.RefKey, d.Target, payloadJSON, StatusQueued)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateDelivery
		}
		return err
	}
	return nil
}

// MarkDelivered flips a delivery to delivered.
func (l *DeliveryLog) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE integration_deliveries SET status = $2, error = NULL, updated_at = NOW() WHERE id = $1`,
		id, StatusDelivered)
	return err
}

// MarkFailed records the failure reason; asynq retries keep the row queued
// until retries are exhausted.
func (l *DeliveryLog) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE integration_deliveries SET status = $2, error = $3, updated_at = NOW() WHERE id = $1`,
		id, StatusFailed, reason)
	return err
}
