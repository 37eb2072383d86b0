package testsupport

import (
	"context"
	"testing"

	"reeldesk/internal/config"
	"reeldesk/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// NewRoom opens an active room for ownerID with an origin notice.
func NewRoom(t testing.TB, s *store.Store, ownerID string) *store.Room {
	t.Helper()

	res, err := s.GetOrCreateActiveRoom(context.Background(), ownerID, "Customer "+ownerID, "Support request initiated: help")
	if err != nil {
		t.Fatalf("GetOrCreateActiveRoom: %v", err)
	}
	return res.Room
}
