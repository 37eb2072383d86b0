// Package escalation turns a customer's "talk to a human" request into a
// support room and tells the staff pool about it.
package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reeldesk/internal/auth"
	"reeldesk/internal/config"
	"reeldesk/internal/feed"
	"reeldesk/internal/logging"
	"reeldesk/internal/metrics"
	"reeldesk/internal/notifications"
	"reeldesk/internal/services"
	"reeldesk/internal/store"
)

// OriginPrefix starts the system notice recorded in a newly created room.
const OriginPrefix = "Support request initiated: "

const (
	noticeKind    = "escalation"
	maxOriginText = 500
)

// Store is the persistence surface used by the bridge.
type Store interface {
	GetOrCreateActiveRoom(ctx context.Context, ownerID, displayName, systemMessage string) (store.OpenRoomResult, error)
	InsertNotification(ctx context.Context, n *store.Notification) error
}

// Result identifies the room the customer should be routed to.
type Result struct {
	RoomID  string
	Created bool
}

// Bridge opens or reuses the customer's active room.
type Bridge struct {
	store    Store
	hub      *feed.Hub
	notifier notifications.Service
	logger   *slog.Logger
}

// New constructs a Bridge. hub and notifier may be nil.
func New(st Store, hub *feed.Hub, notifier notifications.Service, logger *slog.Logger) *Bridge {
	if notifier == nil {
		notifier = notifications.NewService(&config.Config{})
	}
	return &Bridge{
		store:    st,
		hub:      hub,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "escalation"),
	}
}

// Escalate routes customer to a room. A customer never holds two active rooms:
// an existing active room is returned as is. The staff notice is best effort;
// its failure is logged and does not fail the escalation.
func (b *Bridge) Escalate(ctx context.Context, customer auth.Identity, text string) (Result, error) {
	if customer.UserID == "" {
		return Result{}, services.Wrap(services.ErrUnauthenticated, "escalation", "escalate", "sign in to reach an agent", nil)
	}
	if customer.Role != auth.RoleCustomer {
		return Result{}, services.Wrap(services.ErrForbidden, "escalation", "escalate", "only customers can open support requests", nil)
	}
	text = originText(text)

	res, err := b.store.GetOrCreateActiveRoom(ctx, customer.UserID, customer.DisplayName(), OriginPrefix+text)
	if err != nil {
		metrics.Escalations.WithLabelValues("failed").Inc()
		logging.ErrorWithContext(b.logger, "escalation failed", "escalation_failed",
			logging.UserID(customer.UserID),
			logging.Error(err),
			logging.Impact("customer could not reach an agent"),
		)
		return Result{}, fmt.Errorf("open support room: %w", err)
	}
	room := res.Room

	logger := b.logger.With(
		logging.RoomID(room.ID),
		logging.UserID(customer.UserID),
	)
	if res.Created {
		metrics.Escalations.WithLabelValues("created").Inc()
		metrics.MessagesAppended.WithLabelValues(string(store.MessageSystem)).Inc()
		b.hub.RoomChanged(feed.ActionInsert, room.ID)
		b.hub.MessageAdded(room.ID)
		logger.Info("support room created", logging.EventType("escalation_created"))
	} else {
		metrics.Escalations.WithLabelValues("reused").Inc()
		logger.Info("support room reused", logging.EventType("escalation_reused"))
	}

	b.notifyStaff(ctx, logger, customer, room, text, res.Created)
	return Result{RoomID: room.ID, Created: res.Created}, nil
}

// notifyStaff records a notice for every escalation and pushes only when a
// new room was opened.
func (b *Bridge) notifyStaff(ctx context.Context, logger *slog.Logger, customer auth.Identity, room *store.Room, text string, created bool) {
	notice := &store.Notification{
		Audience:   store.AudienceStaff,
		Kind:       noticeKind,
		RoomID:     room.ID,
		CustomerID: customer.UserID,
		Body:       fmt.Sprintf("%s needs help: %s", customer.DisplayName(), text),
	}
	if err := b.store.InsertNotification(ctx, notice); err != nil {
		metrics.NotificationFailures.Inc()
		logging.WarnWithContext(logger, "staff notice not recorded", "notification_failed",
			logging.Error(err),
			logging.ErrorHint("check database health with reeldesk doctor"),
			logging.Impact("escalation missing from the staff notification list"),
		)
	} else {
		b.hub.NotificationAdded(room.ID)
	}

	if !created {
		return
	}
	payload := notifications.Payload{
		"customer":   customer.DisplayName(),
		"customerId": customer.UserID,
		"roomId":     room.ID,
		"text":       text,
	}
	if err := b.notifier.Publish(ctx, notifications.EventEscalation, payload); err != nil {
		metrics.NotificationFailures.Inc()
		logging.WarnWithContext(logger, "staff push failed", "notification_failed",
			logging.Error(err),
			logging.ErrorHint("check notifications.ntfy_topic"),
			logging.Impact("staff devices did not receive a push"),
		)
	}
}

func originText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "(no message)"
	}
	runes := []rune(text)
	if len(runes) > maxOriginText {
		return string(runes[:maxOriginText-1]) + "…"
	}
	return text
}
