package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/notification"
)

const (
	listNotificationsSQL  = `SELECT id, email, full_name, created_at FROM notifications ORDER BY created_at DESC`
	createNotificationSQL = `INSERT INTO notifications (id, email, full_name) VALUES ($1, $2, $3) RETURNING created_at`
)

var _ notification.Repository = (*NotificationRepository)(nil)

// NotificationRepository implements notification.Repository backed by PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository that uses the given pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// List returns subscriptions, newest first.
func (r *NotificationRepository) List(ctx context.Context) ([]notification.Subscription, error) {
	rows, err := r.pool.Query(ctx, listNotificationsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	subs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[notification.Subscription])
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return subs, nil
}

// Create persists a subscription. Returns notification.ErrDuplicateEmail
// when the email is already subscribed.
func (r *NotificationRepository) Create(ctx context.Context, s *notification.Subscription) error {
	err := r.pool.QueryRow(ctx, createNotificationSQL, s.ID, s.Email, s.FullName).Scan(&s.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return notification.ErrDuplicateEmail
		}
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}
