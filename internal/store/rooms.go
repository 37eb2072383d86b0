package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const roomColumns = "id, owner_id, claimant_id, display_name, status, created_at, last_activity_at"

func scanRoom(scanner interface{ Scan(dest ...any) error }) (*Room, error) {
	var (
		id          string
		ownerID     string
		claimantID  sql.NullString
		displayName sql.NullString
		statusStr   string
		createdRaw  string
		activityRaw string
	)
	if err := scanner.Scan(&id, &ownerID, &claimantID, &displayName, &statusStr, &createdRaw, &activityRaw); err != nil {
		return nil, err
	}
	status, err := ParseRoomStatus(statusStr)
	if err != nil {
		return nil, err
	}
	room := &Room{
		ID:          id,
		OwnerID:     ownerID,
		Claimant:    Unclaimed(),
		DisplayName: displayName.String,
		Status:      status,
	}
	if claimantID.Valid && claimantID.String != "" {
		room.Claimant = ClaimedBy(claimantID.String)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		room.CreatedAt = created
	}
	if activity, err := parseTimeString(activityRaw); err == nil {
		room.LastActivityAt = activity
	}
	return room, nil
}

// OpenRoomResult reports the outcome of GetOrCreateActiveRoom.
type OpenRoomResult struct {
	Room    *Room
	Created bool
}

// GetOrCreateActiveRoom returns the owner's active room, creating one when none exists.
// A newly created room receives systemMessage (when non-empty) in the same transaction,
// so a room never exists without its origin notice.
func (s *Store) GetOrCreateActiveRoom(ctx context.Context, ownerID, displayName, systemMessage string) (OpenRoomResult, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return OpenRoomResult{}, errors.New("owner id is required")
	}

	var result OpenRoomResult
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanRoom(tx.QueryRowContext(ctx,
			`SELECT `+roomColumns+` FROM rooms WHERE owner_id = ? AND status = ? LIMIT 1`,
			ownerID, RoomActive,
		))
		switch {
		case err == nil:
			result = OpenRoomResult{Room: existing}
			return nil
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("find active room: %w", err)
		}

		now := time.Now().UTC()
		room := &Room{
			ID:             uuid.NewString(),
			OwnerID:        ownerID,
			Claimant:       Unclaimed(),
			DisplayName:    strings.TrimSpace(displayName),
			Status:         RoomActive,
			CreatedAt:      now,
			LastActivityAt: now,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rooms (id, owner_id, claimant_id, display_name, status, created_at, last_activity_at)
             VALUES (?, ?, NULL, ?, ?, ?, ?)`,
			room.ID, room.OwnerID, room.DisplayName, room.Status, formatTime(now), formatTime(now),
		); err != nil {
			return fmt.Errorf("insert room: %w", err)
		}
		if systemMessage != "" {
			if _, err := insertMessageTx(ctx, tx, room.ID, SystemSender(), MessageSystem, systemMessage, now); err != nil {
				return err
			}
		}
		result = OpenRoomResult{Room: room, Created: true}
		return nil
	})
	if err != nil {
		// Another process won the race on the owner's partial unique index.
		if isConstraintViolation(err) {
			room, findErr := s.ActiveRoomForOwner(ctx, ownerID)
			if findErr == nil && room != nil {
				return OpenRoomResult{Room: room}, nil
			}
		}
		return OpenRoomResult{}, err
	}
	return result, nil
}

// ActiveRoomForOwner returns the owner's active room, or nil when none exists.
func (s *Store) ActiveRoomForOwner(ctx context.Context, ownerID string) (*Room, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE owner_id = ? AND status = ? LIMIT 1`,
		ownerID, RoomActive,
	)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active room: %w", err)
	}
	return room, nil
}

// GetRoom fetches a room by identifier. It returns nil when the room does not exist.
func (s *Store) GetRoom(ctx context.Context, id string) (*Room, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// ListRooms returns rooms matching filter ordered by last activity, most recent first.
func (s *Store) ListRooms(ctx context.Context, filter RoomFilter) ([]*Room, error) {
	ctx = ensureContext(ctx)
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.OwnerID != "" {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.ClaimantID != "" {
		clauses = append(clauses, "claimant_id = ?")
		args = append(args, filter.ClaimantID)
	}
	if filter.Unclaimed {
		clauses = append(clauses, "claimant_id IS NULL")
	}

	query := `SELECT ` + roomColumns + ` FROM rooms`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY last_activity_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// ClaimRoom assigns staffID to an unclaimed active room. The update only applies
// while claimant_id is NULL, so concurrent claims yield exactly one winner. The
// winner's systemMessage is appended in the same transaction. Losing a race is
// reported as claimed=false with a nil error.
func (s *Store) ClaimRoom(ctx context.Context, roomID, staffID, systemMessage string) (bool, error) {
	if strings.TrimSpace(staffID) == "" {
		return false, errors.New("staff id is required")
	}
	claimed := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		claimed = false
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`UPDATE rooms SET claimant_id = ?, last_activity_at = ?
             WHERE id = ? AND claimant_id IS NULL AND status = ?`,
			staffID, formatTime(now), roomID, RoomActive,
		)
		if err != nil {
			return fmt.Errorf("claim room: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("claim room: %w", err)
		}
		if affected != 1 {
			return nil
		}
		claimed = true
		if systemMessage == "" {
			return nil
		}
		_, err = insertMessageTx(ctx, tx, roomID, SystemSender(), MessageSystem, systemMessage, now)
		return err
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// CloseRoom moves an active room to closed and appends systemMessage. Closing a
// room that is already closed changes nothing and reports closed=false.
func (s *Store) CloseRoom(ctx context.Context, roomID, systemMessage string) (bool, error) {
	closed := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		closed = false
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			`UPDATE rooms SET status = ?, last_activity_at = ? WHERE id = ? AND status = ?`,
			RoomClosed, formatTime(now), roomID, RoomActive,
		)
		if err != nil {
			return fmt.Errorf("close room: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("close room: %w", err)
		}
		if affected != 1 {
			return nil
		}
		closed = true
		if systemMessage == "" {
			return nil
		}
		_, err = insertMessageTx(ctx, tx, roomID, SystemSender(), MessageSystem, systemMessage, now)
		return err
	})
	if err != nil {
		return false, err
	}
	return closed, nil
}
