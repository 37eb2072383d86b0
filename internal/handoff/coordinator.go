package handoff

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"reeldesk/internal/auth"
	"reeldesk/internal/config"
	"reeldesk/internal/feed"
	"reeldesk/internal/logging"
	"reeldesk/internal/metrics"
	"reeldesk/internal/notifications"
	"reeldesk/internal/services"
	"reeldesk/internal/store"
)

const (
	// JoinedMessage is appended when a staff member claims a room.
	JoinedMessage = "A support agent has joined the chat."
	// ClosedMessage is appended when a room is closed.
	ClosedMessage = "This support conversation has been closed."
)

// Store is the persistence surface the coordinator needs.
type Store interface {
	GetOrCreateActiveRoom(ctx context.Context, ownerID, displayName, systemMessage string) (store.OpenRoomResult, error)
	GetRoom(ctx context.Context, id string) (*store.Room, error)
	ListRooms(ctx context.Context, filter store.RoomFilter) ([]*store.Room, error)
	ClaimRoom(ctx context.Context, roomID, staffID, systemMessage string) (bool, error)
	CloseRoom(ctx context.Context, roomID, systemMessage string) (bool, error)
	AppendUserMessage(ctx context.Context, roomID, senderID, content string) (*store.Message, error)
	ListMessages(ctx context.Context, roomID string) ([]*store.Message, error)
	MarkRead(ctx context.Context, roomID, readerID string) (int64, error)
}

// ClaimResult reports a claim attempt. Room is re-read after the attempt so a
// losing caller sees the winning claimant.
type ClaimResult struct {
	Claimed bool
	Room    *store.Room
}

// Coordinator applies the room rules on top of the store.
type Coordinator struct {
	store    Store
	hub      *feed.Hub
	notifier notifications.Service
	limits   config.Limits
	logger   *slog.Logger
}

// New constructs a coordinator. hub and notifier may be nil.
func New(st Store, hub *feed.Hub, notifier notifications.Service, limits config.Limits, logger *slog.Logger) *Coordinator {
	if notifier == nil {
		notifier = notifications.NewService(&config.Config{})
	}
	return &Coordinator{
		store:    st,
		hub:      hub,
		notifier: notifier,
		limits:   limits,
		logger:   logging.NewComponentLogger(logger, "handoff"),
	}
}

// ListUnclaimedActive returns active rooms nobody has claimed, most recently active first.
func (c *Coordinator) ListUnclaimedActive(ctx context.Context) ([]*store.Room, error) {
	rooms, err := c.store.ListRooms(ctx, store.RoomFilter{Status: store.RoomActive, Unclaimed: true, Limit: c.limits.ListLimit})
	if err != nil {
		return nil, fmt.Errorf("list unclaimed rooms: %w", err)
	}
	return rooms, nil
}

// ListClaimedByStaff returns the active rooms claimed by staffID.
func (c *Coordinator) ListClaimedByStaff(ctx context.Context, staffID string) ([]*store.Room, error) {
	rooms, err := c.store.ListRooms(ctx, store.RoomFilter{Status: store.RoomActive, ClaimantID: staffID, Limit: c.limits.ListLimit})
	if err != nil {
		return nil, fmt.Errorf("list claimed rooms: %w", err)
	}
	return rooms, nil
}

// ListOwned returns every room owned by customerID.
func (c *Coordinator) ListOwned(ctx context.Context, customerID string) ([]*store.Room, error) {
	rooms, err := c.store.ListRooms(ctx, store.RoomFilter{OwnerID: customerID, Limit: c.limits.ListLimit})
	if err != nil {
		return nil, fmt.Errorf("list owned rooms: %w", err)
	}
	return rooms, nil
}

// OpenRoom returns the customer's active room, creating one when none exists.
func (c *Coordinator) OpenRoom(ctx context.Context, customer auth.Identity) (store.OpenRoomResult, error) {
	if customer.Role != auth.RoleCustomer {
		return store.OpenRoomResult{}, services.Wrap(services.ErrForbidden, "handoff", "open room", "only customers own rooms", nil)
	}
	name, err := c.displayName(customer)
	if err != nil {
		return store.OpenRoomResult{}, err
	}
	res, err := c.store.GetOrCreateActiveRoom(ctx, customer.UserID, name, "")
	if err != nil {
		return store.OpenRoomResult{}, fmt.Errorf("open room: %w", err)
	}
	if res.Created {
		c.hub.RoomChanged(feed.ActionInsert, res.Room.ID)
		c.logger.Info("support room opened",
			logging.EventType("room_opened"),
			logging.RoomID(res.Room.ID),
			logging.UserID(customer.UserID),
		)
	}
	return res, nil
}

// Room returns a room the viewer is allowed to see.
func (c *Coordinator) Room(ctx context.Context, roomID string, viewer auth.Identity) (*store.Room, error) {
	room, err := c.loadRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !CanView(room, viewer) {
		return nil, services.Wrap(services.ErrForbidden, "handoff", "view room", "not a participant", nil)
	}
	return room, nil
}

// Claim assigns the room to staff if nobody holds it yet.
func (c *Coordinator) Claim(ctx context.Context, roomID string, staff auth.Identity) (ClaimResult, error) {
	if !staff.IsStaff() {
		return ClaimResult{}, services.Wrap(services.ErrForbidden, "handoff", "claim", "only staff may claim rooms", nil)
	}
	claimed, err := c.store.ClaimRoom(ctx, roomID, staff.UserID, JoinedMessage)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim room: %w", err)
	}
	room, err := c.loadRoom(ctx, roomID)
	if err != nil {
		return ClaimResult{}, err
	}

	logger := c.logger.With(
		logging.RoomID(roomID),
		logging.UserID(staff.UserID),
	)
	if !claimed {
		metrics.ClaimAttempts.WithLabelValues("lost").Inc()
		logger.Info("claim not applied",
			logging.EventType("claim_lost"),
			logging.String("claimant", room.Claimant.String()),
			logging.String("status", string(room.Status)),
		)
		return ClaimResult{Claimed: false, Room: room}, nil
	}

	metrics.ClaimAttempts.WithLabelValues("won").Inc()
	metrics.MessagesAppended.WithLabelValues(string(store.MessageSystem)).Inc()
	c.hub.RoomChanged(feed.ActionUpdate, roomID)
	c.hub.MessageAdded(roomID)
	logger.Info("room claimed", logging.EventType("room_claimed"))

	c.notify(ctx, notifications.EventRoomClaimed, room, notifications.Payload{"staff": staff.DisplayName()})
	return ClaimResult{Claimed: true, Room: room}, nil
}

// Close ends an active room. Closing a closed room changes nothing and reports false.
// Staff may close unclaimed rooms; a claimed room may only be closed by its claimant.
func (c *Coordinator) Close(ctx context.Context, roomID string, actor auth.Identity) (bool, error) {
	room, err := c.loadRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	if !actor.IsStaff() {
		return false, services.Wrap(services.ErrForbidden, "handoff", "close", "only staff may close rooms", nil)
	}
	if room.Claimant.Claimed() && !room.Claimant.Is(actor.UserID) {
		return false, services.Wrap(services.ErrForbidden, "handoff", "close", "room is claimed by another agent", nil)
	}

	closed, err := c.store.CloseRoom(ctx, roomID, ClosedMessage)
	if err != nil {
		return false, fmt.Errorf("close room: %w", err)
	}
	if !closed {
		return false, nil
	}

	metrics.MessagesAppended.WithLabelValues(string(store.MessageSystem)).Inc()
	c.hub.RoomChanged(feed.ActionUpdate, roomID)
	c.hub.MessageAdded(roomID)
	c.logger.Info("room closed",
		logging.EventType("room_closed"),
		logging.RoomID(roomID),
		logging.UserID(actor.UserID),
	)
	c.notify(ctx, notifications.EventRoomClosed, room, nil)
	return true, nil
}

// Post appends a text message from sender. Posts to closed rooms or from
// non-participants are rejected with services.ErrPostRejected and change nothing.
func (c *Coordinator) Post(ctx context.Context, roomID string, sender auth.Identity, content string) (*store.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, services.Wrap(services.ErrValidation, "handoff", "post", "message is empty", nil)
	}
	if !utf8.ValidString(content) {
		return nil, services.Wrap(services.ErrValidation, "handoff", "post", "message is not valid UTF-8", nil)
	}
	if limit := c.limits.MaxMessageBytes; limit > 0 && len(content) > limit {
		return nil, services.Wrap(services.ErrValidation, "handoff", "post", fmt.Sprintf("message exceeds %d bytes", limit), nil)
	}

	msg, err := c.store.AppendUserMessage(ctx, roomID, sender.UserID, content)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return nil, services.Wrap(services.ErrNotFound, "handoff", "post", "room "+roomID, err)
	case errors.Is(err, store.ErrRoomClosed), errors.Is(err, store.ErrNotParticipant):
		metrics.PostsRejected.Inc()
		logging.WarnWithContext(c.logger, "post rejected", "post_rejected",
			logging.RoomID(roomID),
			logging.UserID(sender.UserID),
			logging.Error(err),
			logging.ErrorHint("only the owner or claimant may post in an active room"),
			logging.Impact("message was not delivered"),
		)
		return nil, fmt.Errorf("%w: %w", services.ErrPostRejected, err)
	default:
		return nil, fmt.Errorf("post message: %w", err)
	}

	metrics.MessagesAppended.WithLabelValues(string(store.MessageText)).Inc()
	c.hub.MessageAdded(roomID)
	c.hub.RoomChanged(feed.ActionUpdate, roomID)
	c.logger.Debug("message posted",
		logging.RoomID(roomID),
		logging.UserID(sender.UserID),
		logging.Int("bytes", len(content)),
	)
	return msg, nil
}

// Messages returns the room history in append order.
func (c *Coordinator) Messages(ctx context.Context, roomID string, viewer auth.Identity) ([]*store.Message, error) {
	if _, err := c.Room(ctx, roomID, viewer); err != nil {
		return nil, err
	}
	msgs, err := c.store.ListMessages(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flags every message not authored by reader as read.
func (c *Coordinator) MarkRead(ctx context.Context, roomID string, reader auth.Identity) (int64, error) {
	room, err := c.loadRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}
	if !room.IsParticipant(reader.UserID) {
		return 0, services.Wrap(services.ErrForbidden, "handoff", "mark read", "not a participant", nil)
	}
	n, err := c.store.MarkRead(ctx, roomID, reader.UserID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	if n > 0 {
		c.hub.MessagesUpdated(roomID)
	}
	return n, nil
}

// CanView reports whether viewer may read room. Owners and claimants always
// can; other staff can while nobody has claimed it.
func CanView(room *store.Room, viewer auth.Identity) bool {
	if room == nil || viewer.UserID == "" {
		return false
	}
	if room.IsParticipant(viewer.UserID) {
		return true
	}
	return viewer.IsStaff() && !room.Claimant.Claimed()
}

func (c *Coordinator) loadRoom(ctx context.Context, roomID string) (*store.Room, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, services.Wrap(services.ErrValidation, "handoff", "", "room id is required", nil)
	}
	room, err := c.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	if room == nil {
		return nil, services.Wrap(services.ErrNotFound, "handoff", "", "room "+roomID, nil)
	}
	return room, nil
}

func (c *Coordinator) displayName(customer auth.Identity) (string, error) {
	name := strings.TrimSpace(customer.DisplayName())
	if limit := c.limits.MaxDisplayNameBytes; limit > 0 && len(name) > limit {
		return "", services.Wrap(services.ErrValidation, "handoff", "open room", fmt.Sprintf("display name exceeds %d bytes", limit), nil)
	}
	return name, nil
}

func (c *Coordinator) notify(ctx context.Context, event notifications.Event, room *store.Room, payload notifications.Payload) {
	if payload == nil {
		payload = notifications.Payload{}
	}
	payload["roomId"] = room.ID
	payload["customerId"] = room.OwnerID
	if room.DisplayName != "" {
		payload["customer"] = room.DisplayName
	}
	if err := c.notifier.Publish(ctx, event, payload); err != nil {
		metrics.NotificationFailures.Inc()
		logging.WarnWithContext(c.logger, "staff notification failed", "notification_failed",
			logging.RoomID(room.ID),
			logging.String("event", string(event)),
			logging.Error(err),
			logging.ErrorHint("check notifications.ntfy_topic"),
			logging.Impact("staff devices did not receive a push"),
		)
	}
}
