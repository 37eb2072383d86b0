package api

import (
	"time"

	"reeldesk/internal/assistant"
	"reeldesk/internal/billing"
	"reeldesk/internal/feed"
	"reeldesk/internal/store"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromRoom converts a room record to its API representation.
func FromRoom(room *store.Room) Room {
	if room == nil {
		return Room{}
	}
	dto := Room{
		ID:             room.ID,
		OwnerID:        room.OwnerID,
		DisplayName:    room.DisplayName,
		Status:         string(room.Status),
		CreatedAt:      formatTime(room.CreatedAt),
		LastActivityAt: formatTime(room.LastActivityAt),
	}
	if staffID, ok := room.Claimant.StaffID(); ok {
		dto.ClaimantID = staffID
		dto.Claimed = true
	}
	return dto
}

// FromRooms converts room records into API DTOs. The result is never nil so
// empty lists encode as [].
func FromRooms(rooms []*store.Room) []Room {
	out := make([]Room, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, FromRoom(room))
	}
	return out
}

// FromMessage converts a message record.
func FromMessage(msg *store.Message) Message {
	if msg == nil {
		return Message{}
	}
	dto := Message{
		Seq:       msg.Seq,
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		Content:   msg.Content,
		System:    msg.Sender.IsSystem(),
		Kind:      string(msg.Kind),
		CreatedAt: formatTime(msg.CreatedAt),
		Read:      msg.Read,
	}
	if userID, ok := msg.Sender.UserID(); ok {
		dto.SenderID = userID
	}
	return dto
}

// FromMessages converts a room history.
func FromMessages(msgs []*store.Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, FromMessage(msg))
	}
	return out
}

// FromNotifications converts staff notices.
func FromNotifications(items []*store.Notification) []Notification {
	out := make([]Notification, 0, len(items))
	for _, n := range items {
		if n == nil {
			continue
		}
		out = append(out, Notification{
			ID:         n.ID,
			Audience:   n.Audience,
			Kind:       n.Kind,
			RoomID:     n.RoomID,
			CustomerID: n.CustomerID,
			Body:       n.Body,
			CreatedAt:  formatTime(n.CreatedAt),
			Read:       n.Read,
		})
	}
	return out
}

// FromAccount converts an account and attaches its tier limits.
func FromAccount(account *store.Account) Account {
	if account == nil {
		return Account{}
	}
	limits := billing.TierLimits(account.Tier)
	return Account{
		CustomerID:     account.CustomerID,
		Tier:           string(account.Tier),
		SubscriptionID: account.SubscriptionID,
		PlanID:         account.PlanID,
		Platforms:      limits.Platforms,
		PlatformsLabel: limits.PlatformsLabel(),
		CommissionRate: limits.CommissionRate,
		UpdatedAt:      formatTime(account.UpdatedAt),
	}
}

// FromReply converts an assistant reply.
func FromReply(reply assistant.Reply) AssistantReply {
	suggestions := reply.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return AssistantReply{
		Topic:       string(reply.Topic),
		Branch:      reply.Branch,
		Text:        reply.Text,
		Suggestions: suggestions,
		Escalate:    reply.Escalate,
	}
}

// FromStats converts desk counts.
func FromStats(stats store.Stats) DeskStats {
	return DeskStats{
		ActiveRooms:    stats.ActiveRooms,
		UnclaimedRooms: stats.UnclaimedRooms,
		ClaimedRooms:   stats.ClaimedRooms,
		ClosedRooms:    stats.ClosedRooms,
		Messages:       stats.Messages,
		UnreadNotices:  stats.UnreadNotices,
	}
}

// FromEvents converts feed signals.
func FromEvents(events []feed.Event) []FeedEvent {
	out := make([]FeedEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, FromEvent(evt))
	}
	return out
}

// FromEvent converts a single feed signal.
func FromEvent(evt feed.Event) FeedEvent {
	return FeedEvent{
		Seq:      evt.Seq,
		Resource: string(evt.Resource),
		Action:   string(evt.Action),
		RoomID:   evt.RoomID,
		At:       formatTime(evt.At),
	}
}
