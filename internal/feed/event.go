package feed

import (
	"fmt"
	"strings"
	"time"
)

// Resource names the kind of record an event refers to.
type Resource string

const (
	ResourceRooms         Resource = "rooms"
	ResourceMessages      Resource = "messages"
	ResourceNotifications Resource = "notifications"
)

// Action describes what happened to the resource.
type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
)

// Event signals that a resource changed.
type Event struct {
	Seq      uint64    `json:"seq"`
	Resource Resource  `json:"resource"`
	Action   Action    `json:"action"`
	RoomID   string    `json:"roomId,omitempty"`
	At       time.Time `json:"at"`

	// Origin is set on events received from another instance.
	Origin string `json:"-"`
}

// Topic selects events by resource and, for messages, by room.
type Topic struct {
	Resource Resource
	RoomID   string
}

// RoomsTopic matches every room insert and update.
func RoomsTopic() Topic { return Topic{Resource: ResourceRooms} }

// RoomMessagesTopic matches message inserts and updates within one room.
func RoomMessagesTopic(roomID string) Topic {
	return Topic{Resource: ResourceMessages, RoomID: roomID}
}

// NotificationsTopic matches staff notification changes.
func NotificationsTopic() Topic { return Topic{Resource: ResourceNotifications} }

// ParseTopic builds a topic from query parameters.
func ParseTopic(resource, roomID string) (Topic, error) {
	roomID = strings.TrimSpace(roomID)
	switch Resource(strings.ToLower(strings.TrimSpace(resource))) {
	case ResourceRooms, "":
		return RoomsTopic(), nil
	case ResourceMessages:
		if roomID == "" {
			return Topic{}, fmt.Errorf("messages topic requires a room id")
		}
		return RoomMessagesTopic(roomID), nil
	case ResourceNotifications:
		return NotificationsTopic(), nil
	default:
		return Topic{}, fmt.Errorf("unknown feed resource %q", resource)
	}
}

// Matches reports whether evt belongs to the topic.
func (t Topic) Matches(evt Event) bool {
	if t.Resource != evt.Resource {
		return false
	}
	if t.RoomID != "" && t.RoomID != evt.RoomID {
		return false
	}
	return true
}

func (t Topic) String() string {
	if t.RoomID == "" {
		return string(t.Resource)
	}
	return string(t.Resource) + ":" + t.RoomID
}
