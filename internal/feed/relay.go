package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"reeldesk/internal/logging"
)

const relayQueueSize = 256

// envelope is the wire form exchanged between instances.
type envelope struct {
	Origin   string    `json:"origin"`
	Resource Resource  `json:"resource"`
	Action   Action    `json:"action"`
	RoomID   string    `json:"roomId,omitempty"`
	At       time.Time `json:"at"`
}

// Relay mirrors hub events onto a Redis pub/sub channel and republishes
// events from other instances locally.
type Relay struct {
	hub     *Hub
	client  *redis.Client
	channel string
	origin  string
	logger  *slog.Logger
	out     chan Event
	dropped atomic.Uint64
}

// NewRelay connects to redisURL. The relay is inert until Run is called.
func NewRelay(ctx context.Context, hub *Hub, redisURL, channel string, logger *slog.Logger) (*Relay, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRelay(hub, client, channel, logger), nil
}

func newRelay(hub *Hub, client *redis.Client, channel string, logger *slog.Logger) *Relay {
	return &Relay{
		hub:     hub,
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logging.NewComponentLogger(logger, "feed-relay"),
		out:     make(chan Event, relayQueueSize),
	}
}

// Origin identifies this instance on the channel.
func (r *Relay) Origin() string { return r.origin }

// Dropped reports events discarded because the outbound queue was full.
func (r *Relay) Dropped() uint64 { return r.dropped.Load() }

// Append queues a locally published event for forwarding. Events that arrived
// from another instance are not forwarded again.
func (r *Relay) Append(evt Event) {
	if evt.Origin != "" {
		return
	}
	select {
	case r.out <- evt:
	default:
		r.dropped.Add(1)
	}
}

// Run forwards queued events and republishes remote ones until ctx ends.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("feed relay subscribed", logging.String("channel", r.channel))

	return r.pump(ctx, pubsub.Channel())
}

// pump republishes incoming messages while a forwarder drains the outbound
// queue. The forwarder is stopped before pump returns.
func (r *Relay) pump(ctx context.Context, incoming <-chan *redis.Message) error {
	fwdCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.forward(fwdCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-incoming:
			if !ok {
				return errors.New("redis subscription closed")
			}
			r.receive(msg.Payload)
		}
	}
}

func (r *Relay) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-r.out:
			payload, err := r.encode(evt)
			if err != nil {
				continue
			}
			if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil && ctx.Err() == nil {
				logging.WarnWithContext(r.logger, "feed relay publish failed", "feed_relay_publish_failed",
					logging.Error(err),
					logging.ErrorHint("check redis connectivity"),
					logging.Impact("other instances miss this change signal"),
				)
			}
		}
	}
}

func (r *Relay) encode(evt Event) ([]byte, error) {
	return json.Marshal(envelope{
		Origin:   r.origin,
		Resource: evt.Resource,
		Action:   evt.Action,
		RoomID:   evt.RoomID,
		At:       evt.At,
	})
}

// receive republishes a remote payload. It reports whether the payload was applied.
func (r *Relay) receive(payload string) bool {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Debug("feed relay payload ignored", logging.Error(err))
		return false
	}
	if env.Origin == "" || env.Origin == r.origin || env.Resource == "" {
		return false
	}
	r.hub.Publish(Event{
		Resource: env.Resource,
		Action:   env.Action,
		RoomID:   env.RoomID,
		At:       env.At,
		Origin:   env.Origin,
	})
	return true
}

// Close releases the Redis client.
func (r *Relay) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
