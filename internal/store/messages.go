package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

const messageColumns = "seq, id, room_id, content, sender_id, kind, created_at, read"

func scanMessage(scanner interface{ Scan(dest ...any) error }) (*Message, error) {
	var (
		msg        Message
		senderID   sql.NullString
		kind       string
		createdRaw string
		read       int
	)
	if err := scanner.Scan(&msg.Seq, &msg.ID, &msg.RoomID, &msg.Content, &senderID, &kind, &createdRaw, &read); err != nil {
		return nil, err
	}
	msg.Kind = MessageKind(kind)
	msg.Sender = SystemSender()
	if senderID.Valid && senderID.String != "" {
		msg.Sender = UserSender(senderID.String)
	}
	msg.Read = read != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		msg.CreatedAt = created
	}
	return &msg, nil
}

// insertMessageTx appends a message and bumps the room's last activity inside tx.
func insertMessageTx(ctx context.Context, tx *sql.Tx, roomID string, sender Sender, kind MessageKind, content string, at time.Time) (*Message, error) {
	msg := &Message{
		ID:        ulid.Make().String(),
		RoomID:    roomID,
		Content:   content,
		Sender:    sender,
		Kind:      kind,
		CreatedAt: at.UTC(),
	}
	senderID, _ := sender.UserID()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, room_id, content, sender_id, kind, created_at, read)
         VALUES (?, ?, ?, ?, ?, ?, 0)`,
		msg.ID, roomID, content, nullableString(senderID), kind, formatTime(at),
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if seq, err := res.LastInsertId(); err == nil {
		msg.Seq = seq
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE rooms SET last_activity_at = ? WHERE id = ?`,
		formatTime(at), roomID,
	); err != nil {
		return nil, fmt.Errorf("touch room: %w", err)
	}
	return msg, nil
}

// AppendUserMessage appends content authored by senderID. The insert only applies
// while the room is active and the sender is its owner or claimant, so a post
// racing a close never lands after the closing notice.
func (s *Store) AppendUserMessage(ctx context.Context, roomID, senderID, content string) (*Message, error) {
	if senderID == "" {
		return nil, ErrNotParticipant
	}
	var msg *Message
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		msg = nil
		now := time.Now().UTC()
		id := ulid.Make().String()
		res, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, room_id, content, sender_id, kind, created_at, read)
             SELECT ?, r.id, ?, ?, ?, ?, 0 FROM rooms r
             WHERE r.id = ? AND r.status = ? AND (r.owner_id = ? OR r.claimant_id = ?)`,
			id, content, senderID, MessageText, formatTime(now),
			roomID, RoomActive, senderID, senderID,
		)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if affected != 1 {
			return diagnoseRejectedPost(ctx, tx, roomID)
		}
		seq, _ := res.LastInsertId()
		if _, err := tx.ExecContext(ctx,
			`UPDATE rooms SET last_activity_at = ? WHERE id = ?`,
			formatTime(now), roomID,
		); err != nil {
			return fmt.Errorf("touch room: %w", err)
		}
		msg = &Message{
			Seq:       seq,
			ID:        id,
			RoomID:    roomID,
			Content:   content,
			Sender:    UserSender(senderID),
			Kind:      MessageText,
			CreatedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func diagnoseRejectedPost(ctx context.Context, tx *sql.Tx, roomID string) error {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM rooms WHERE id = ?`, roomID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("inspect room: %w", err)
	}
	if RoomStatus(status) != RoomActive {
		return ErrRoomClosed
	}
	return ErrNotParticipant
}

// ListMessages returns the room's messages in append order.
func (s *Store) ListMessages(ctx context.Context, roomID string) ([]*Message, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE room_id = ? ORDER BY created_at, seq`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of messages in a room.
func (s *Store) CountMessages(ctx context.Context, roomID string) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE room_id = ?`, roomID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}

// MarkRead flags every message in the room not authored by readerID as read.
func (s *Store) MarkRead(ctx context.Context, roomID, readerID string) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE messages SET read = 1
         WHERE room_id = ? AND read = 0 AND (sender_id IS NULL OR sender_id != ?)`,
		roomID, readerID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return res.RowsAffected()
}
