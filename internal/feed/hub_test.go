package feed

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestHubFetchFiltersByTopic(t *testing.T) {
	hub := NewHub(16)
	hub.RoomChanged(ActionInsert, "room-1")
	hub.MessageAdded("room-1")
	hub.MessageAdded("room-2")
	hub.NotificationAdded("room-1")

	events, next, err := hub.Fetch(context.Background(), 0, 0, false, RoomMessagesTopic("room-1"))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Resource != ResourceMessages || events[0].RoomID != "room-1" {
		t.Errorf("unexpected event %#v", events[0])
	}
	if next != 4 {
		t.Errorf("expected cursor 4, got %d", next)
	}

	events, _, err = hub.Fetch(context.Background(), 0, 0, false, RoomsTopic())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 1 || events[0].Seq != 1 {
		t.Fatalf("unexpected room events %#v", events)
	}
}

func TestHubFetchLimitAdvancesCursor(t *testing.T) {
	hub := NewHub(16)
	for i := 0; i < 5; i++ {
		hub.RoomChanged(ActionUpdate, "room-1")
	}
	events, next, err := hub.Fetch(context.Background(), 0, 2, false, RoomsTopic())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 2 || next != 2 {
		t.Fatalf("expected 2 events and cursor 2, got %d and %d", len(events), next)
	}
	events, next, err = hub.Fetch(context.Background(), next, 10, false, RoomsTopic())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 3 || next != 5 {
		t.Fatalf("expected 3 events and cursor 5, got %d and %d", len(events), next)
	}
}

func TestHubCapacityDropsOldest(t *testing.T) {
	hub := NewHub(3)
	for i := 0; i < 5; i++ {
		hub.RoomChanged(ActionUpdate, "room-1")
	}
	if first := hub.FirstSequence(); first != 3 {
		t.Fatalf("expected first buffered sequence 3, got %d", first)
	}
	if last := hub.LastSequence(); last != 5 {
		t.Fatalf("expected last sequence 5, got %d", last)
	}
}

func TestHubFetchWaitWakesOnMatchingEvent(t *testing.T) {
	hub := NewHub(16)
	topic := RoomMessagesTopic("room-1")

	done := make(chan []Event, 1)
	go func() {
		events, _, err := hub.Fetch(context.Background(), 0, 0, true, topic)
		if err != nil {
			t.Errorf("Fetch failed: %v", err)
		}
		done <- events
	}()

	time.Sleep(20 * time.Millisecond)
	hub.MessageAdded("room-2")
	hub.MessageAdded("room-1")

	select {
	case events := <-done:
		if len(events) != 1 || events[0].RoomID != "room-1" {
			t.Fatalf("unexpected events %#v", events)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Fetch did not wake")
	}
}

func TestHubFetchWaitHonorsContext(t *testing.T) {
	hub := NewHub(16)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, _, err := hub.Fetch(ctx, 0, 0, true, RoomsTopic())
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestSubscriptionCoalescesSignals(t *testing.T) {
	hub := NewHub(16)
	sub := hub.Subscribe(RoomsTopic())
	defer sub.Close()

	hub.RoomChanged(ActionInsert, "room-1")
	hub.RoomChanged(ActionUpdate, "room-1")
	hub.MessageAdded("room-1")

	select {
	case evt := <-sub.C():
		if evt.Resource != ResourceRooms {
			t.Fatalf("unexpected event %#v", evt)
		}
	default:
		t.Fatal("expected a pending signal")
	}
	select {
	case evt := <-sub.C():
		t.Fatalf("expected signals to coalesce, got %#v", evt)
	default:
	}
}

func TestSubscriptionCloseIsIdempotent(t *testing.T) {
	hub := NewHub(16)
	sub := hub.Subscribe(NotificationsTopic())
	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers())
	}
	sub.Close()
	sub.Close()
	if hub.Subscribers() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", hub.Subscribers())
	}
	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel")
	}
	// publishing after close must not panic
	hub.NotificationAdded("room-1")
}

func TestNilHubIsSafe(t *testing.T) {
	var hub *Hub
	hub.RoomChanged(ActionInsert, "room-1")
	sub := hub.Subscribe(RoomsTopic())
	sub.Close()
	if _, ok := <-sub.C(); ok {
		t.Fatal("expected closed channel from nil hub")
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Append(evt Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func TestHubSinksReceiveEvents(t *testing.T) {
	hub := NewHub(16)
	sink := &recordingSink{}
	hub.AddSink(sink)
	hub.RoomChanged(ActionInsert, "room-1")
	hub.MessageAdded("room-1")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 2 || sink.events[1].Seq != 2 {
		t.Fatalf("unexpected sink events %#v", sink.events)
	}
}

func TestHubRemoveSink(t *testing.T) {
	hub := NewHub(16)
	sink := &recordingSink{}
	hub.AddSink(sink)
	hub.RoomChanged(ActionInsert, "room-1")
	hub.RemoveSink(sink)
	hub.RoomChanged(ActionUpdate, "room-1")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.events) != 1 {
		t.Fatalf("expected one event before removal, got %d", len(sink.events))
	}
}

func TestParseTopic(t *testing.T) {
	cases := []struct {
		resource string
		roomID   string
		want     Topic
		wantErr  bool
	}{
		{"", "", RoomsTopic(), false},
		{"rooms", "", RoomsTopic(), false},
		{"messages", "room-1", RoomMessagesTopic("room-1"), false},
		{"messages", "", Topic{}, true},
		{"Notifications", "", NotificationsTopic(), false},
		{"payments", "", Topic{}, true},
	}
	for _, tc := range cases {
		got, err := ParseTopic(tc.resource, tc.roomID)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTopic(%q, %q) expected error", tc.resource, tc.roomID)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTopic(%q, %q) failed: %v", tc.resource, tc.roomID, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTopic(%q, %q) = %v, want %v", tc.resource, tc.roomID, got, tc.want)
		}
	}
}
