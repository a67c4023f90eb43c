package postgres

import (
	"context"
	"fmt"

	"recycle-marketplace/internal/core/domain"
	"recycle-marketplace/internal/core/ports"

	"github.com/google/uuid"
)

// NotificationRepo implements ports.NotificationRepository.
type NotificationRepo struct {
	pool Pool
}

// NewNotificationRepo creates a new NotificationRepo.
func NewNotificationRepo(pool Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create inserts a notification.
func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	query := `INSERT INTO notifications (id, user_id, ntype, title_primary, title_secondary, body_primary, body_secondary, order_id, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		n.ID, n.UserID, n.Type,
		n.Title.Primary, n.Title.Secondary,
		n.Body.Primary, n.Body.Secondary,
		n.OrderID, n.Read, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// MarkRead flips one notification to read. Scoping by user_id keeps a
// user from touching another user's records; zero rows affected is fine.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`

	if _, err := r.pool.Exec(ctx, query, id, userID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead flips all of the user's unread notifications.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	query := `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

// UnreadCount returns the number of unread notifications for the user.
func (r *NotificationRepo) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`

	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// List returns up to limit notifications ordered (created_at desc,
// id desc), keyset-paginated strictly before the cursor when given.
func (r *NotificationRepo) List(ctx context.Context, userID uuid.UUID, limit int, before *ports.NotificationCursor) ([]domain.Notification, error) {
	query := `SELECT id, user_id, ntype, title_primary, title_secondary, body_primary, body_secondary, order_id, read, created_at
		FROM notifications WHERE user_id = $1`
	args := []any{userID}

	if before != nil {
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, before.CreatedAt, before.ID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var items []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type,
			&n.Title.Primary, &n.Title.Secondary,
			&n.Body.Primary, &n.Body.Secondary,
			&n.OrderID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
