package handoff_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"reeldesk/internal/auth"
	"reeldesk/internal/feed"
	"reeldesk/internal/handoff"
	"reeldesk/internal/logging"
	"reeldesk/internal/notifications"
	"reeldesk/internal/services"
	"reeldesk/internal/store"
	"reeldesk/internal/testsupport"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingNotifier) count(event notifications.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

type fixture struct {
	coord    *handoff.Coordinator
	store    *store.Store
	hub      *feed.Hub
	notifier *recordingNotifier
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithMaxMessageBytes(64))
	st := testsupport.MustOpenStore(t, cfg)
	hub := feed.NewHub(64)
	notifier := &recordingNotifier{}
	coord := handoff.New(st, hub, notifier, cfg.Limits, logging.NewNop())
	return fixture{coord: coord, store: st, hub: hub, notifier: notifier}
}

var (
	customer = auth.Identity{UserID: "cust-1", Role: auth.RoleCustomer, Name: "Ana"}
	agentA   = auth.Identity{UserID: "staff-a", Role: auth.RoleStaff, Name: "Alex"}
	agentB   = auth.Identity{UserID: "staff-b", Role: auth.RoleStaff, Name: "Blair"}
)

func TestClaimFirstWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := testsupport.NewRoom(t, f.store, customer.UserID)

	first, err := f.coord.Claim(ctx, room.ID, agentA)
	if err != nil {
		t.Fatalf("Claim A: %v", err)
	}
	if !first.Claimed || !first.Room.Claimant.Is(agentA.UserID) {
		t.Fatalf("expected A to win, got %+v", first)
	}

	second, err := f.coord.Claim(ctx, room.ID, agentB)
	if err != nil {
		t.Fatalf("Claim B: %v", err)
	}
	if second.Claimed {
		t.Fatal("expected second claim to lose")
	}
	if !second.Room.Claimant.Is(agentA.UserID) {
		t.Fatalf("losing caller should see winner, got %s", second.Room.Claimant)
	}
	if got := f.notifier.count(notifications.EventRoomClaimed); got != 1 {
		t.Fatalf("expected one claim notification, got %d", got)
	}

	msgs, err := f.store.ListMessages(ctx, room.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	joined := 0
	for _, m := range msgs {
		if m.Content == handoff.JoinedMessage {
			joined++
		}
	}
	if joined != 1 {
		t.Fatalf("expected one join notice, got %d", joined)
	}
}

func TestClaimRequiresStaff(t *testing.T) {
	f := newFixture(t)
	room := testsupport.NewRoom(t, f.store, customer.UserID)

	_, err := f.coord.Claim(context.Background(), room.ID, customer)
	if !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestClaimUnknownRoom(t *testing.T) {
	f := newFixture(t)
	_, err := f.coord.Claim(context.Background(), "missing", agentA)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListsPartitionRooms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	claimed := testsupport.NewRoom(t, f.store, "cust-1")
	open := testsupport.NewRoom(t, f.store, "cust-2")

	if _, err := f.coord.Claim(ctx, claimed.ID, agentA); err != nil {
		t.Fatalf("Claim: %v", err)
	}

	unclaimed, err := f.coord.ListUnclaimedActive(ctx)
	if err != nil {
		t.Fatalf("ListUnclaimedActive: %v", err)
	}
	if len(unclaimed) != 1 || unclaimed[0].ID != open.ID {
		t.Fatalf("unexpected unclaimed rooms: %+v", unclaimed)
	}

	mine, err := f.coord.ListClaimedByStaff(ctx, agentA.UserID)
	if err != nil {
		t.Fatalf("ListClaimedByStaff: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != claimed.ID {
		t.Fatalf("unexpected claimed rooms: %+v", mine)
	}

	other, err := f.coord.ListClaimedByStaff(ctx, agentB.UserID)
	if err != nil {
		t.Fatalf("ListClaimedByStaff: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no rooms for B, got %d", len(other))
	}
}

func TestPostRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := testsupport.NewRoom(t, f.store, customer.UserID)

	if _, err := f.coord.Post(ctx, room.ID, customer, "hello?"); err != nil {
		t.Fatalf("owner post before claim: %v", err)
	}
	if _, err := f.coord.Post(ctx, room.ID, agentA, "hi"); !errors.Is(err, services.ErrPostRejected) {
		t.Fatalf("expected rejection for unclaimed staff post, got %v", err)
	}

	if _, err := f.coord.Claim(ctx, room.ID, agentA); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := f.coord.Post(ctx, room.ID, agentA, "how can I help?"); err != nil {
		t.Fatalf("claimant post: %v", err)
	}
	if _, err := f.coord.Post(ctx, room.ID, agentB, "me too"); !errors.Is(err, services.ErrPostRejected) {
		t.Fatalf("expected rejection for other staff, got %v", err)
	}
}

func TestPostValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := testsupport.NewRoom(t, f.store, customer.UserID)

	if _, err := f.coord.Post(ctx, room.ID, customer, "   "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank post, got %v", err)
	}
	if _, err := f.coord.Post(ctx, room.ID, customer, strings.Repeat("x", 65)); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for long post, got %v", err)
	}
	if _, err := f.coord.Post(ctx, "missing", customer, "hi"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClosePermissionsAndIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := testsupport.NewRoom(t, f.store, customer.UserID)

	if _, err := f.coord.Claim(ctx, room.ID, agentA); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := f.coord.Close(ctx, room.ID, customer); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("customer close: expected forbidden, got %v", err)
	}
	if _, err := f.coord.Close(ctx, room.ID, agentB); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("non-claimant close: expected forbidden, got %v", err)
	}

	closed, err := f.coord.Close(ctx, room.ID, agentA)
	if err != nil || !closed {
		t.Fatalf("Close: closed=%v err=%v", closed, err)
	}
	closed, err = f.coord.Close(ctx, room.ID, agentA)
	if err != nil || closed {
		t.Fatalf("second Close: closed=%v err=%v", closed, err)
	}

	if _, err := f.coord.Post(ctx, room.ID, customer, "still there?"); !errors.Is(err, services.ErrPostRejected) {
		t.Fatalf("expected rejection after close, got %v", err)
	}

	msgs, err := f.store.ListMessages(ctx, room.ID)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	notices := 0
	for _, m := range msgs {
		if m.Content == handoff.ClosedMessage {
			notices++
		}
	}
	if notices != 1 {
		t.Fatalf("expected one close notice, got %d", notices)
	}
	if got := f.notifier.count(notifications.EventRoomClosed); got != 1 {
		t.Fatalf("expected one close notification, got %d", got)
	}
}

func TestCloseUnclaimedByAnyStaff(t *testing.T) {
	f := newFixture(t)
	room := testsupport.NewRoom(t, f.store, customer.UserID)

	closed, err := f.coord.Close(context.Background(), room.ID, agentB)
	if err != nil || !closed {
		t.Fatalf("Close: closed=%v err=%v", closed, err)
	}
}

func TestMessagesVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := testsupport.NewRoom(t, f.store, customer.UserID)
	stranger := auth.Identity{UserID: "cust-2", Role: auth.RoleCustomer}

	if _, err := f.coord.Messages(ctx, room.ID, agentB); err != nil {
		t.Fatalf("staff should read unclaimed room: %v", err)
	}
	if _, err := f.coord.Messages(ctx, room.ID, stranger); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}

	if _, err := f.coord.Claim(ctx, room.ID, agentA); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := f.coord.Messages(ctx, room.ID, agentB); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden for other staff after claim, got %v", err)
	}
	msgs, err := f.coord.Messages(ctx, room.ID, customer)
	if err != nil {
		t.Fatalf("owner Messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected origin and join notices, got %d", len(msgs))
	}
}

func TestMarkReadSkipsOwnMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := testsupport.NewRoom(t, f.store, customer.UserID)
	if _, err := f.coord.Claim(ctx, room.ID, agentA); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if _, err := f.coord.Post(ctx, room.ID, agentA, "hello"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if _, err := f.coord.Post(ctx, room.ID, customer, "hi"); err != nil {
		t.Fatalf("Post: %v", err)
	}

	n, err := f.coord.MarkRead(ctx, room.ID, customer)
	if err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	// origin notice, join notice, staff greeting
	if n != 3 {
		t.Fatalf("expected 3 messages marked, got %d", n)
	}
	if _, err := f.coord.MarkRead(ctx, room.ID, agentB); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestOpenRoomReusesActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.coord.OpenRoom(ctx, customer)
	if err != nil {
		t.Fatalf("OpenRoom: %v", err)
	}
	if !first.Created {
		t.Fatal("expected first open to create")
	}
	second, err := f.coord.OpenRoom(ctx, customer)
	if err != nil {
		t.Fatalf("OpenRoom: %v", err)
	}
	if second.Created || second.Room.ID != first.Room.ID {
		t.Fatalf("expected reuse of %s, got %+v", first.Room.ID, second)
	}
	if _, err := f.coord.OpenRoom(ctx, agentA); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden for staff, got %v", err)
	}
}

func TestWritesPublishFeedEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := testsupport.NewRoom(t, f.store, customer.UserID)
	sub := f.hub.Subscribe(feed.RoomMessagesTopic(room.ID))
	defer sub.Close()

	if _, err := f.coord.Post(ctx, room.ID, customer, "ping"); err != nil {
		t.Fatalf("Post: %v", err)
	}
	select {
	case <-sub.C():
	case <-time.After(time.Second):
		t.Fatal("expected message signal")
	}

	events, _, err := f.hub.Fetch(ctx, 0, 10, false, feed.RoomsTopic())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected a rooms event")
	}
}

func TestNotifierFailureDoesNotFailClaim(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("ntfy down")
	room := testsupport.NewRoom(t, f.store, customer.UserID)

	res, err := f.coord.Claim(context.Background(), room.ID, agentA)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !res.Claimed {
		t.Fatal("expected claim to succeed")
	}
}
