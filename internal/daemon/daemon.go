package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"reeldesk/internal/assistant"
	"reeldesk/internal/billing"
	"reeldesk/internal/config"
	"reeldesk/internal/escalation"
	"reeldesk/internal/feed"
	"reeldesk/internal/handoff"
	"reeldesk/internal/logging"
	"reeldesk/internal/notifications"
	"reeldesk/internal/preflight"
	"reeldesk/internal/store"
)

const relayRetryDelay = 5 * time.Second

// Daemon owns the support desk services and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	hub       *feed.Hub
	notifier  notifications.Service
	coord     *handoff.Coordinator
	bridge    *escalation.Bridge
	responder *assistant.Responder
	billing   *billing.Service
	api       *apiServer

	lockPath string
	lock     *flock.Flock

	relayActive atomic.Bool
	running     atomic.Bool
	ctx         context.Context
	cancel      context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	PID             int
	DatabasePath    string
	LockFilePath    string
	SocketPath      string
	APIBind         string
	FeedSubscribers int
	FeedSequence    uint64
	RelayEnabled    bool
	BillingEnabled  bool
	Stats           store.Stats
	StatsError      string
	Checks          []preflight.Result
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	hub := feed.NewHub(cfg.Feed.BufferSize)
	notifier := notifications.NewService(cfg)
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		hub:       hub,
		notifier:  notifier,
		coord:     handoff.New(st, hub, notifier, cfg.Limits, logger),
		bridge:    escalation.New(st, hub, notifier, logger),
		responder: assistant.New(),
		billing:   billing.NewService(cfg.Billing, st, logger),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, connects the feed relay, and starts the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reeldesk daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if strings.TrimSpace(d.cfg.Feed.RedisURL) != "" {
		d.startRelay(d.ctx)
	}
	if err := d.api.start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("reeldesk daemon started",
		logging.EventType("daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.address()),
	)
	return nil
}

// startRelay connects to Redis in the background and keeps the relay running
// until ctx ends. The desk keeps serving local clients while Redis is down.
func (d *Daemon) startRelay(ctx context.Context) {
	go func() {
		for {
			relay, err := feed.NewRelay(ctx, d.hub, d.cfg.Feed.RedisURL, d.cfg.Feed.RedisChannel, d.logger)
			if err == nil {
				d.hub.AddSink(relay)
				d.relayActive.Store(true)
				err = relay.Run(ctx)
				d.relayActive.Store(false)
				d.hub.RemoveSink(relay)
				_ = relay.Close()
			}
			if ctx.Err() != nil {
				return
			}
			logging.WarnWithContext(d.logger, "feed relay unavailable", "feed_relay_unavailable",
				logging.Error(err),
				logging.ErrorHint("check feed.redis_url"),
				logging.Impact("other instances will not see changes made here"),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(relayRetryDelay):
			}
		}
	}()
}

// Stop stops the API server and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("reeldesk daemon stopped", logging.EventType("daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Coordinator exposes the room rules to the IPC server.
func (d *Daemon) Coordinator() *handoff.Coordinator { return d.coord }

// Store returns the backing store.
func (d *Daemon) Store() *store.Store { return d.store }

// Hub returns the change feed hub.
func (d *Daemon) Hub() *feed.Hub { return d.hub }

// APIAddress returns the address the HTTP API is listening on.
func (d *Daemon) APIAddress() string { return d.api.address() }

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:         d.running.Load(),
		PID:             os.Getpid(),
		DatabasePath:    d.store.Path(),
		LockFilePath:    d.lockPath,
		SocketPath:      d.cfg.SocketPath(),
		APIBind:         d.api.address(),
		FeedSubscribers: d.hub.Subscribers(),
		FeedSequence:    d.hub.LastSequence(),
		RelayEnabled:    d.relayActive.Load(),
		BillingEnabled:  d.billing.Enabled(),
		Checks:          preflight.RunAll(ctx, d.cfg),
	}
	stats, err := d.store.Stats(ctx)
	if err != nil {
		status.StatsError = err.Error()
	} else {
		status.Stats = stats
	}
	return status
}
