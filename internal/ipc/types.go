package ipc

import "reeldesk/internal/api"

// Room mirrors the HTTP API room DTO.
type Room = api.Room

// Message mirrors the HTTP API message DTO.
type Message = api.Message

// Notification mirrors the HTTP API notification DTO.
type Notification = api.Notification

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse carries the daemon status.
type StatusResponse = api.DaemonStatus

// Actor names the staff member a CLI operator acts as.
type Actor struct {
	StaffID   string `json:"staff_id"`
	StaffName string `json:"staff_name"`
}

// RoomListRequest selects rooms. View is "unclaimed", "mine", or "all".
type RoomListRequest struct {
	Actor
	View string `json:"view"`
}

// RoomListResponse contains rooms.
type RoomListResponse struct {
	Rooms []Room `json:"rooms"`
}

// RoomDescribeRequest fetches a room with its history.
type RoomDescribeRequest struct {
	ID string `json:"id"`
}

// RoomDescribeResponse contains a room and its messages.
type RoomDescribeResponse struct {
	Room     Room      `json:"room"`
	Messages []Message `json:"messages"`
}

// ClaimRequest claims a room for the actor.
type ClaimRequest struct {
	Actor
	ID string `json:"id"`
}

// ClaimResponse reports the claim outcome.
type ClaimResponse struct {
	Claimed bool `json:"claimed"`
	Room    Room `json:"room"`
}

// CloseRequest closes a room on behalf of the actor.
type CloseRequest struct {
	Actor
	ID string `json:"id"`
}

// CloseResponse reports whether the room was closed by this call.
type CloseResponse struct {
	Closed bool `json:"closed"`
}

// PostRequest posts a message as the actor.
type PostRequest struct {
	Actor
	ID      string `json:"id"`
	Content string `json:"content"`
}

// PostResponse carries the stored message.
type PostResponse struct {
	Message Message `json:"message"`
}

// NotificationListRequest filters staff notices.
type NotificationListRequest struct {
	UnreadOnly bool `json:"unread_only"`
	Limit      int  `json:"limit"`
}

// NotificationListResponse contains staff notices.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
}

// DatabaseHealthRequest fetches database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse reports database diagnostics.
type DatabaseHealthResponse struct {
	DBPath           string   `json:"db_path"`
	DatabaseExists   bool     `json:"database_exists"`
	DatabaseReadable bool     `json:"database_readable"`
	SchemaVersion    int      `json:"schema_version"`
	MissingTables    []string `json:"missing_tables"`
	IntegrityCheck   bool     `json:"integrity_check"`
	Error            string   `json:"error"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the result of a notification test.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
