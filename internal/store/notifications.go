package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// InsertNotification records a notification and fills in its ID and timestamp.
func (s *Store) InsertNotification(ctx context.Context, n *Notification) error {
	if n == nil {
		return fmt.Errorf("insert notification: nil notification")
	}
	if n.Audience == "" {
		n.Audience = AudienceStaff
	}
	n.ID = ulid.Make().String()
	n.CreatedAt = time.Now().UTC()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO notifications (id, audience, kind, room_id, customer_id, body, created_at, read)
         VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		n.ID, n.Audience, n.Kind, nullableString(n.RoomID), nullableString(n.CustomerID), n.Body, formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns notifications for audience, newest first.
func (s *Store) ListNotifications(ctx context.Context, audience string, unreadOnly bool, limit int) ([]*Notification, error) {
	ctx = ensureContext(ctx)
	query := `SELECT id, audience, kind, room_id, customer_id, body, created_at, read
              FROM notifications WHERE audience = ?`
	args := []any{audience}
	if unreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var (
			n          Notification
			roomID     sql.NullString
			customerID sql.NullString
			createdRaw string
			read       int
		)
		if err := rows.Scan(&n.ID, &n.Audience, &n.Kind, &roomID, &customerID, &n.Body, &createdRaw, &read); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.RoomID = roomID.String
		n.CustomerID = customerID.String
		n.Read = read != 0
		if created, err := parseTimeString(createdRaw); err == nil {
			n.CreatedAt = created
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

// MarkNotificationRead flags one notification as read.
func (s *Store) MarkNotificationRead(ctx context.Context, id string) error {
	res, err := s.execWithRetry(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}
