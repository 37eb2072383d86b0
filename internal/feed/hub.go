package feed

import (
	"context"
	"sync"
	"time"
)

// Sink receives every event published to the hub.
type Sink interface {
	Append(Event)
}

// Hub stores recent change events, wakes long-poll waiters, and signals subscriptions.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	sinks    []Sink
	subs     map[*Subscription]struct{}
}

// NewHub constructs a bounded in-memory event buffer.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &Hub{capacity: capacity, subs: make(map[*Subscription]struct{})}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// AddSink wires an additional sink that receives every published event.
func (h *Hub) AddSink(sink Sink) {
	if h == nil || sink == nil {
		return
	}
	h.mu.Lock()
	h.sinks = append(h.sinks, sink)
	h.mu.Unlock()
}

// RemoveSink detaches a sink added with AddSink.
func (h *Hub) RemoveSink(sink Sink) {
	if h == nil || sink == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.sinks {
		if existing == sink {
			h.sinks = append(h.sinks[:i], h.sinks[i+1:]...)
			return
		}
	}
}

// Publish appends evt, assigns its sequence, and signals matching subscriptions.
func (h *Hub) Publish(evt Event) Event {
	if h == nil {
		return evt
	}
	h.mu.Lock()
	h.nextSeq++
	evt.Seq = h.nextSeq
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}

	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	for sub := range h.subs {
		if sub.topic.Matches(evt) {
			sub.signal(evt)
		}
	}
	sinks := append([]Sink(nil), h.sinks...)
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, sink := range sinks {
		sink.Append(evt)
	}
	return evt
}

// RoomChanged publishes a room insert or update.
func (h *Hub) RoomChanged(action Action, roomID string) {
	h.Publish(Event{Resource: ResourceRooms, Action: action, RoomID: roomID})
}

// MessageAdded publishes a message insert for roomID.
func (h *Hub) MessageAdded(roomID string) {
	h.Publish(Event{Resource: ResourceMessages, Action: ActionInsert, RoomID: roomID})
}

// MessagesUpdated publishes a message update, such as read flags, for roomID.
func (h *Hub) MessagesUpdated(roomID string) {
	h.Publish(Event{Resource: ResourceMessages, Action: ActionUpdate, RoomID: roomID})
}

// NotificationAdded publishes a staff notification insert.
func (h *Hub) NotificationAdded(roomID string) {
	h.Publish(Event{Resource: ResourceNotifications, Action: ActionInsert, RoomID: roomID})
}

// Subscribe registers interest in topic. The caller must Close the subscription.
func (h *Hub) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		hub:   h,
		topic: topic,
		ch:    make(chan Event, 1),
	}
	if h == nil {
		close(sub.ch)
		sub.closed = true
		return sub
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Subscribers reports the number of open subscriptions.
func (h *Hub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
}

// Fetch returns events matching topic with sequence greater than since. When
// wait is true, Fetch blocks until at least one matching event is available
// or the context ends. The returned cursor is the last sequence examined.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool, topic Topic) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, next := h.snapshotLocked(since, limit, topic)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		since = next
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, since, err
		}
	}
}

// LastSequence reports the most recently assigned sequence.
func (h *Hub) LastSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nextSeq
}

// FirstSequence reports the smallest sequence number still buffered.
func (h *Hub) FirstSequence() uint64 {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return h.nextSeq
	}
	return h.buffer[0].Seq
}

func (h *Hub) snapshotLocked(since uint64, limit int, topic Topic) ([]Event, uint64) {
	var out []Event
	for _, evt := range h.buffer {
		if evt.Seq <= since || !topic.Matches(evt) {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			return out, evt.Seq
		}
	}
	return out, h.nextSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
