package feed

import "sync"

// Subscription delivers change signals for one topic. Signals coalesce: while
// one is pending, later matching events are absorbed into it, so a slow
// reader re-fetches once instead of falling behind.
type Subscription struct {
	hub    *Hub
	topic  Topic
	ch     chan Event
	once   sync.Once
	closed bool
}

// C returns the channel that receives signals. It is closed by Close.
func (s *Subscription) C() <-chan Event { return s.ch }

// Topic returns the subscribed topic.
func (s *Subscription) Topic() Topic { return s.topic }

// signal is called with the hub lock held.
func (s *Subscription) signal(evt Event) {
	select {
	case s.ch <- evt:
	default:
	}
}

// Close stops delivery and closes the channel. It is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.closed || s.hub == nil {
			return
		}
		s.hub.unsubscribe(s)
	})
}
