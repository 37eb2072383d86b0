package api

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"reeldesk/internal/assistant"
	"reeldesk/internal/store"
)

func TestFromRoomFlattensClaimant(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	room := &store.Room{
		ID:             "room-1",
		OwnerID:        "cust-1",
		Claimant:       store.ClaimedBy("staff-a"),
		DisplayName:    "Ana",
		Status:         store.RoomActive,
		CreatedAt:      created,
		LastActivityAt: created.Add(time.Minute),
	}

	dto := FromRoom(room)
	if !dto.Claimed || dto.ClaimantID != "staff-a" {
		t.Fatalf("expected claimant staff-a, got %+v", dto)
	}
	if dto.CreatedAt != "2026-03-01T12:00:00.000Z" {
		t.Fatalf("unexpected createdAt %q", dto.CreatedAt)
	}

	unclaimed := FromRoom(&store.Room{ID: "room-2", Status: store.RoomClosed})
	if unclaimed.Claimed || unclaimed.ClaimantID != "" || unclaimed.Status != "closed" {
		t.Fatalf("unexpected unclaimed dto %+v", unclaimed)
	}

	payload, err := json.Marshal(unclaimed)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(payload), "claimantId") {
		t.Fatalf("claimantId should be omitted when unclaimed: %s", payload)
	}
}

func TestFromMessageSystemSender(t *testing.T) {
	sys := FromMessage(&store.Message{ID: "m1", Sender: store.SystemSender(), Kind: store.MessageSystem})
	if !sys.System || sys.SenderID != "" || sys.Kind != "system" {
		t.Fatalf("unexpected system message %+v", sys)
	}
	user := FromMessage(&store.Message{ID: "m2", Sender: store.UserSender("cust-1"), Kind: store.MessageText})
	if user.System || user.SenderID != "cust-1" {
		t.Fatalf("unexpected user message %+v", user)
	}
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	payload, err := json.Marshal(RoomListResponse{Rooms: FromRooms(nil)})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"rooms":[]}` {
		t.Fatalf("unexpected payload %s", payload)
	}
	reply := FromReply(assistant.Reply{Topic: "general"})
	if reply.Suggestions == nil {
		t.Fatal("suggestions should never be nil")
	}
}

func TestFromAccountAttachesLimits(t *testing.T) {
	dto := FromAccount(&store.Account{CustomerID: "cust-1", Tier: store.TierPremium})
	if dto.Platforms != -1 || dto.PlatformsLabel != "unlimited platforms" || dto.CommissionRate != 0.10 {
		t.Fatalf("unexpected premium limits %+v", dto)
	}
}
