package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"reeldesk/internal/config"
)

const userAgent = "Reeldesk-Go/0.1.0"

// Event names a staff-facing support desk event.
type Event string

const (
	EventEscalation  Event = "escalation"
	EventRoomClaimed Event = "claim"
	EventRoomClosed  Event = "closed"
	EventTest        Event = "test"
)

// Payload carries event fields. Keys used: customer, customerId, roomId, text, staff.
type Payload map[string]any

// Service defines the push surface exposed to support desk components.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventEscalation:  cfg.Notifications.Escalation,
			EventRoomClaimed: cfg.Notifications.Claim,
			EventRoomClosed:  cfg.Notifications.Closed,
			EventTest:        true,
		},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, data Payload) error {
	if !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, data)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, data Payload) (payload, bool) {
	customer := stringValue(data, "customer")
	if customer == "" {
		customer = stringValue(data, "customerId")
	}
	switch event {
	case EventEscalation:
		text := truncate(stringValue(data, "text"), 280)
		message := fmt.Sprintf("🙋 %s needs an agent", fallback(customer, "A customer"))
		if text != "" {
			message += ": " + text
		}
		return payload{
			title:    "Reeldesk - Support Request",
			message:  message,
			tags:     []string{"reeldesk", "support", "escalation"},
			priority: "high",
		}, true
	case EventRoomClaimed:
		return payload{
			title:   "Reeldesk - Room Claimed",
			message: fmt.Sprintf("%s joined the chat with %s", fallback(stringValue(data, "staff"), "An agent"), fallback(customer, "a customer")),
			tags:    []string{"reeldesk", "support", "claimed"},
		}, true
	case EventRoomClosed:
		return payload{
			title:   "Reeldesk - Room Closed",
			message: fmt.Sprintf("Support conversation with %s closed", fallback(customer, "a customer")),
			tags:    []string{"reeldesk", "support", "closed"},
		}, true
	case EventTest:
		return payload{
			title:    "Reeldesk - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"reeldesk", "test"},
			priority: "low",
		}, true
	default:
		return payload{}, false
	}
}

func stringValue(data Payload, key string) string {
	if data == nil {
		return ""
	}
	switch v := data[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
