package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Room describes a support room in a transport-friendly format.
type Room struct {
	ID             string `json:"id"`
	OwnerID        string `json:"ownerId"`
	ClaimantID     string `json:"claimantId,omitempty"`
	Claimed        bool   `json:"claimed"`
	DisplayName    string `json:"displayName"`
	Status         string `json:"status"`
	CreatedAt      string `json:"createdAt,omitempty"`
	LastActivityAt string `json:"lastActivityAt,omitempty"`
}

// Message is one entry of a room's history.
type Message struct {
	Seq       int64  `json:"seq"`
	ID        string `json:"id"`
	RoomID    string `json:"roomId"`
	Content   string `json:"content"`
	SenderID  string `json:"senderId,omitempty"`
	System    bool   `json:"system"`
	Kind      string `json:"kind"`
	CreatedAt string `json:"createdAt,omitempty"`
	Read      bool   `json:"read"`
}

// Notification is a staff notice.
type Notification struct {
	ID         string `json:"id"`
	Audience   string `json:"audience"`
	Kind       string `json:"kind"`
	RoomID     string `json:"roomId,omitempty"`
	CustomerID string `json:"customerId,omitempty"`
	Body       string `json:"body"`
	CreatedAt  string `json:"createdAt,omitempty"`
	Read       bool   `json:"read"`
}

// Account is a customer's billing state with the limits of its tier.
type Account struct {
	CustomerID     string  `json:"customerId"`
	Tier           string  `json:"tier"`
	SubscriptionID string  `json:"subscriptionId,omitempty"`
	PlanID         string  `json:"planId,omitempty"`
	Platforms      int     `json:"platforms"`
	PlatformsLabel string  `json:"platformsLabel"`
	CommissionRate float64 `json:"commissionRate"`
	UpdatedAt      string  `json:"updatedAt,omitempty"`
}

// AssistantReply is the assistant's answer. RoomID is set when the reply
// escalated and the caller was routed to a support room.
type AssistantReply struct {
	Topic       string   `json:"topic"`
	Branch      string   `json:"branch"`
	Text        string   `json:"text"`
	Suggestions []string `json:"suggestions"`
	Escalate    bool     `json:"escalate"`
	RoomID      string   `json:"roomId,omitempty"`
	RoomCreated bool     `json:"roomCreated,omitempty"`
}

// DeskStats summarizes room and message counts.
type DeskStats struct {
	ActiveRooms    int `json:"activeRooms"`
	UnclaimedRooms int `json:"unclaimedRooms"`
	ClaimedRooms   int `json:"claimedRooms"`
	ClosedRooms    int `json:"closedRooms"`
	Messages       int `json:"messages"`
	UnreadNotices  int `json:"unreadNotices"`
}

// CheckStatus reports one environment check.
type CheckStatus struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running         bool          `json:"running"`
	PID             int           `json:"pid"`
	DatabasePath    string        `json:"databasePath"`
	LockFilePath    string        `json:"lockFilePath"`
	SocketPath      string        `json:"socketPath"`
	APIBind         string        `json:"apiBind"`
	FeedSubscribers int           `json:"feedSubscribers"`
	FeedSequence    uint64        `json:"feedSequence"`
	RelayEnabled    bool          `json:"relayEnabled"`
	BillingEnabled  bool          `json:"billingEnabled"`
	Stats           DeskStats     `json:"stats"`
	Checks          []CheckStatus `json:"checks"`
}

// FeedEvent is a change signal.
type FeedEvent struct {
	Seq      uint64 `json:"seq"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	RoomID   string `json:"roomId,omitempty"`
	At       string `json:"at"`
}

// FeedResponse is returned by the long-poll endpoint. Next is the sequence to
// pass as since on the following request.
type FeedResponse struct {
	Events []FeedEvent `json:"events"`
	Next   uint64      `json:"next"`
}

// RoomListResponse wraps a collection of rooms.
type RoomListResponse struct {
	Rooms []Room `json:"rooms"`
}

// RoomResponse wraps a single room.
type RoomResponse struct {
	Room Room `json:"room"`
}

// OpenRoomResponse reports the room a customer was routed to.
type OpenRoomResponse struct {
	Room    Room `json:"room"`
	Created bool `json:"created"`
}

// ClaimResponse reports a claim attempt. On a lost race Room carries the
// current claimant.
type ClaimResponse struct {
	Claimed bool `json:"claimed"`
	Room    Room `json:"room"`
}

// CloseResponse reports whether the call closed the room.
type CloseResponse struct {
	Closed bool `json:"closed"`
}

// MessageListResponse wraps a room history.
type MessageListResponse struct {
	Messages []Message `json:"messages"`
}

// MessageResponse wraps a single posted message.
type MessageResponse struct {
	Message Message `json:"message"`
}

// MarkReadResponse reports how many messages were flagged.
type MarkReadResponse struct {
	Marked int64 `json:"marked"`
}

// NotificationListResponse wraps staff notices.
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
}

// CheckoutResponse carries the approval link for a new subscription.
type CheckoutResponse struct {
	SubscriptionID string `json:"subscriptionId"`
	Tier           string `json:"tier"`
	ApprovalURL    string `json:"approvalUrl"`
}

// BillingReturnResponse echoes the return flags and, when a subscription was
// activated, the updated account.
type BillingReturnResponse struct {
	Success        bool     `json:"success"`
	Canceled       bool     `json:"canceled"`
	ALaCarte       bool     `json:"aLaCarte"`
	Plan           string   `json:"plan,omitempty"`
	SubscriptionID string   `json:"subscriptionId,omitempty"`
	Account        *Account `json:"account,omitempty"`
}

// PostMessageRequest is the body of a message post.
type PostMessageRequest struct {
	Content string `json:"content"`
}

// AssistantRequest is the body of an assistant query.
type AssistantRequest struct {
	Text string `json:"text"`
}

// SubscribeRequest is the body of a subscription start.
type SubscribeRequest struct {
	Tier string `json:"tier"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
