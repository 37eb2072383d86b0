package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newTestRelay(t *testing.T, hub *Hub) *Relay {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	relay := newRelay(hub, client, "reeldesk:test", nil)
	t.Cleanup(func() { _ = relay.Close() })
	return relay
}

func TestRelayReceiveRepublishesRemoteEvents(t *testing.T) {
	hub := NewHub(16)
	relay := newTestRelay(t, hub)

	payload, err := json.Marshal(envelope{Origin: "other", Resource: ResourceMessages, Action: ActionInsert, RoomID: "room-1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !relay.receive(string(payload)) {
		t.Fatal("expected remote payload to apply")
	}

	events, _, err := hub.Fetch(context.Background(), 0, 0, false, RoomMessagesTopic("room-1"))
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(events) != 1 || events[0].Origin != "other" {
		t.Fatalf("unexpected events %#v", events)
	}
}

func TestRelayIgnoresOwnAndMalformedPayloads(t *testing.T) {
	hub := NewHub(16)
	relay := newTestRelay(t, hub)

	own, err := relay.encode(Event{Resource: ResourceRooms, Action: ActionUpdate, RoomID: "room-1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if relay.receive(string(own)) {
		t.Fatal("expected own payload to be ignored")
	}
	if relay.receive("not json") {
		t.Fatal("expected malformed payload to be ignored")
	}
	if hub.LastSequence() != 0 {
		t.Fatalf("expected no events, got %d", hub.LastSequence())
	}
}

func TestRelayAppendSkipsRemoteAndDropsWhenFull(t *testing.T) {
	hub := NewHub(16)
	relay := newTestRelay(t, hub)

	relay.Append(Event{Resource: ResourceRooms, Origin: "other"})
	if len(relay.out) != 0 {
		t.Fatalf("expected remote event to be skipped, queue has %d", len(relay.out))
	}
	for i := 0; i < relayQueueSize+3; i++ {
		relay.Append(Event{Resource: ResourceRooms})
	}
	if relay.Dropped() != 3 {
		t.Fatalf("expected 3 dropped events, got %d", relay.Dropped())
	}
}

func TestRelayPumpStopsForwarderWhenSubscriptionCloses(t *testing.T) {
	hub := NewHub(16)
	relay := newTestRelay(t, hub)

	incoming := make(chan *redis.Message, 1)
	payload, err := json.Marshal(envelope{Origin: "other", Resource: ResourceRooms, Action: ActionInsert, RoomID: "room-1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	incoming <- &redis.Message{Channel: "reeldesk:test", Payload: string(payload)}
	close(incoming)

	done := make(chan error, 1)
	go func() { done <- relay.pump(context.Background(), incoming) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected closed subscription to be reported")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not return after the subscription closed")
	}
	if hub.LastSequence() != 1 {
		t.Fatalf("expected the queued remote event to be applied, got sequence %d", hub.LastSequence())
	}
}

func TestRelayPumpReturnsOnCancel(t *testing.T) {
	relay := newTestRelay(t, NewHub(16))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.pump(ctx, make(chan *redis.Message)) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not return after cancel")
	}
}
