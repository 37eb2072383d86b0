package store

import (
	"fmt"
	"strings"
	"time"
)

// RoomStatus represents the lifecycle of a support room.
type RoomStatus string

const (
	RoomActive RoomStatus = "active"
	RoomClosed RoomStatus = "closed"
)

// ParseRoomStatus converts a persisted or user supplied value into a RoomStatus.
func ParseRoomStatus(value string) (RoomStatus, error) {
	switch RoomStatus(strings.ToLower(strings.TrimSpace(value))) {
	case RoomActive:
		return RoomActive, nil
	case RoomClosed:
		return RoomClosed, nil
	default:
		return "", fmt.Errorf("unknown room status %q", value)
	}
}

// CanTransition reports whether a room may move from s to next.
// Active rooms may only close; closed is terminal.
func (s RoomStatus) CanTransition(next RoomStatus) bool {
	switch s {
	case RoomActive:
		return next == RoomClosed
	case RoomClosed:
		return false
	default:
		return false
	}
}

// Claimant records which staff member, if any, owns the conversation on the
// support side. The zero value is unclaimed.
type Claimant struct {
	staffID string
}

// Unclaimed returns a claimant value with no staff member.
func Unclaimed() Claimant { return Claimant{} }

// ClaimedBy returns a claimant value for the given staff member.
func ClaimedBy(staffID string) Claimant { return Claimant{staffID: staffID} }

// StaffID returns the claiming staff member and true, or "" and false when unclaimed.
func (c Claimant) StaffID() (string, bool) {
	return c.staffID, c.staffID != ""
}

// Claimed reports whether a staff member holds the room.
func (c Claimant) Claimed() bool { return c.staffID != "" }

// Is reports whether userID is the claiming staff member.
func (c Claimant) Is(userID string) bool {
	return c.staffID != "" && c.staffID == userID
}

func (c Claimant) String() string {
	if c.staffID == "" {
		return "unclaimed"
	}
	return c.staffID
}

// Sender identifies who authored a message. The zero value is the system.
type Sender struct {
	userID string
}

// SystemSender returns the sender used for system-authored messages.
func SystemSender() Sender { return Sender{} }

// UserSender returns a sender for the given user.
func UserSender(userID string) Sender { return Sender{userID: userID} }

// UserID returns the authoring user and true, or "" and false for system messages.
func (s Sender) UserID() (string, bool) {
	return s.userID, s.userID != ""
}

// IsSystem reports whether the message was authored by the system.
func (s Sender) IsSystem() bool { return s.userID == "" }

func (s Sender) String() string {
	if s.userID == "" {
		return "system"
	}
	return s.userID
}

// MessageKind distinguishes user text from system notices.
type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageSystem MessageKind = "system"
)

// Room is a persisted conversation between one customer and at most one staff claimant.
type Room struct {
	ID             string
	OwnerID        string
	Claimant       Claimant
	DisplayName    string
	Status         RoomStatus
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// IsActive reports whether the room still accepts messages.
func (r *Room) IsActive() bool {
	return r != nil && r.Status == RoomActive
}

// IsParticipant reports whether userID is the owner or the claimant.
func (r *Room) IsParticipant(userID string) bool {
	if r == nil || userID == "" {
		return false
	}
	return r.OwnerID == userID || r.Claimant.Is(userID)
}

// Message is one entry of a room's append-only log.
type Message struct {
	Seq       int64
	ID        string
	RoomID    string
	Content   string
	Sender    Sender
	Kind      MessageKind
	CreatedAt time.Time
	Read      bool
}

// Notification is a record addressed to an audience such as the staff pool.
type Notification struct {
	ID         string
	Audience   string
	Kind       string
	RoomID     string
	CustomerID string
	Body       string
	CreatedAt  time.Time
	Read       bool
}

// AudienceStaff addresses notifications to every staff member.
const AudienceStaff = "staff"

// Tier is a customer's service level.
type Tier string

const (
	TierFree    Tier = "free"
	TierPro     Tier = "pro"
	TierPremium Tier = "premium"
)

// ParseTier converts a user supplied value into a Tier.
func ParseTier(value string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(value))) {
	case TierFree:
		return TierFree, nil
	case TierPro:
		return TierPro, nil
	case TierPremium:
		return TierPremium, nil
	default:
		return "", fmt.Errorf("unknown tier %q", value)
	}
}

// Account holds the billing state of a customer.
type Account struct {
	CustomerID     string
	Tier           Tier
	SubscriptionID string
	PlanID         string
	UpdatedAt      time.Time
}

// RoomFilter narrows ListRooms results. Zero fields do not filter.
type RoomFilter struct {
	Status     RoomStatus
	OwnerID    string
	ClaimantID string
	Unclaimed  bool
	Limit      int
}

// Stats aggregates room and message counts.
type Stats struct {
	ActiveRooms    int
	UnclaimedRooms int
	ClaimedRooms   int
	ClosedRooms    int
	Messages       int
	UnreadNotices  int
}

// DatabaseHealth captures diagnostic information about the SQLite database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	MissingTables    []string
	IntegrityCheck   bool
	Error            string
}
