package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/voclaria/voclaria/internal/model"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ForRecipient(ctx context.Context, recipientID string, limit int) ([]*model.Notification, error)
	MarkRead(ctx context.Context, recipientID, id string) error
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, actor_id, post_id, type, is_read, created_at)
		VALUES (:id, :recipient_id, :actor_id, :post_id, :type, :is_read, :created_at)
	`, n)
	return err
}

// ForRecipient returns the newest notifications first.
func (r *notificationRepository) ForRecipient(ctx context.Context, recipientID string, limit int) ([]*model.Notification, error) {
	var rows []*model.Notification
	err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRead is scoped to the recipient so nobody can mark another user's row.
func (r *notificationRepository) MarkRead(ctx context.Context, recipientID, id string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = $1 WHERE id = $2 AND recipient_id = $3
	`, true, id, recipientID)
	return affectedOne(result, err, ErrNotificationNotFound)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = $1 WHERE recipient_id = $2 AND is_read = $3
	`, true, recipientID, false)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
