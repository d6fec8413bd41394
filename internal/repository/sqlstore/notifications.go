package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bloodfinder/m/domain"
)

// CreateNotifications inserts a batch of notifications.
func (s *Store) CreateNotifications(ctx context.Context, ns []*domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	now := s.timestamp()
	for _, n := range ns {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		n.CreatedAt = n.CreatedAt.UTC()
	}

	_, err := sqlx.NamedExecContext(ctx, s.ext, `
		INSERT INTO notifications (id, user_id, message, is_read, link, created_at)
		VALUES (:id, :user_id, :message, :is_read, :link, :created_at)`, ns)
	if err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// ListNotifications lists a recipient's notifications in [from, to), newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, from, to time.Time, limit int) ([]*domain.Notification, error) {
	where := []string{"user_id = ?"}
	args := []interface{}{userID}
	if !from.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		where = append(where, "created_at < ?")
		args = append(args, to.UTC())
	}
	query := `
		SELECT id, user_id, message, is_read, link, created_at
		FROM notifications
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	notifications := []*domain.Notification{}
	if err := s.selectAll(ctx, &notifications, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// CountUnread counts a recipient's unread notifications.
func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.get(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?`, userID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkAllRead marks every unread notification of a recipient as read.
func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.exec(ctx, `UPDATE notifications SET is_read = ? WHERE user_id = ? AND is_read = ?`, true, userID, false)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}
