package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reeldesk/internal/api"
	"reeldesk/internal/auth"
	"reeldesk/internal/config"
	"reeldesk/internal/store"
	"reeldesk/internal/testsupport"
)

func TestRoomsWorkflowThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	room := testsupport.NewRoom(t, env.store, "cust-1")

	out, _, err := env.run(t, "rooms", "list")
	if err != nil {
		t.Fatalf("rooms list: %v", err)
	}
	requireContains(t, out, room.ID)
	requireContains(t, out, "Customer cust-1")

	out, stderr, err := env.run(t, "--staff", "alex", "--staff-name", "Alex", "rooms", "claim", room.ID)
	if err != nil {
		t.Fatalf("rooms claim: %v", err)
	}
	requireContains(t, out, "Claimed room "+room.ID)
	if stderr != "" {
		t.Fatalf("expected no offline note, got %q", stderr)
	}

	out, _, err = env.run(t, "--staff", "blair", "rooms", "claim", room.ID)
	if err != nil {
		t.Fatalf("second rooms claim: %v", err)
	}
	requireContains(t, out, "already claimed by alex")

	if _, _, err := env.run(t, "--staff", "blair", "rooms", "post", room.ID, "hello"); err == nil {
		t.Fatal("expected post from a non-claimant to fail")
	}
	out, _, err = env.run(t, "--staff", "alex", "rooms", "post", room.ID, "How", "can", "I", "help?")
	if err != nil {
		t.Fatalf("rooms post: %v", err)
	}
	requireContains(t, out, "to room "+room.ID)

	out, _, err = env.run(t, "--staff", "alex", "rooms", "list", "--view", "mine", "--json")
	if err != nil {
		t.Fatalf("rooms list mine: %v", err)
	}
	var mine []api.Room
	if err := json.Unmarshal([]byte(out), &mine); err != nil {
		t.Fatalf("decode rooms: %v (%s)", err, out)
	}
	if len(mine) != 1 || mine[0].ClaimantID != "alex" {
		t.Fatalf("unexpected claimed rooms %#v", mine)
	}

	out, _, err = env.run(t, "rooms", "show", room.ID)
	if err != nil {
		t.Fatalf("rooms show: %v", err)
	}
	requireContains(t, out, "Claimant:  alex")
	requireContains(t, out, "How can I help?")

	out, _, err = env.run(t, "--staff", "alex", "rooms", "close", room.ID)
	if err != nil {
		t.Fatalf("rooms close: %v", err)
	}
	requireContains(t, out, "Closed room "+room.ID)

	out, _, err = env.run(t, "rooms", "list")
	if err != nil {
		t.Fatalf("rooms list after close: %v", err)
	}
	requireContains(t, out, "No rooms")
}

func TestRoomsShowUnknownRoom(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.run(t, "rooms", "show", "missing")
	if err == nil {
		t.Fatalf("expected unknown room to fail, got output %q", out)
	}
	requireContains(t, err.Error(), "room missing not found")
	if out != "" {
		t.Fatalf("expected no room output, got %q", out)
	}
}

func TestRoomsShowUnknownRoomOffline(t *testing.T) {
	env := setupOfflineEnv(t)
	out, _, err := env.run(t, "rooms", "show", "missing")
	if err == nil {
		t.Fatalf("expected unknown room to fail, got output %q", out)
	}
	requireContains(t, err.Error(), "room missing not found")
}

func TestRoomsFallBackToDatabaseWhenDaemonIsDown(t *testing.T) {
	env := setupOfflineEnv(t)

	st, err := store.Open(env.cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	room := testsupport.NewRoom(t, st, "cust-9")
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	out, stderr, err := env.run(t, "--staff", "casey", "rooms", "claim", room.ID)
	if err != nil {
		t.Fatalf("rooms claim offline: %v", err)
	}
	requireContains(t, out, "Claimed room "+room.ID)
	requireContains(t, stderr, "daemon not running")

	st = testsupport.MustOpenStore(t, env.cfg)
	got, err := st.GetRoom(context.Background(), room.ID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	if !got.Claimant.Is("casey") {
		t.Fatalf("expected claim persisted for casey, got %v", got.Claimant)
	}
}

func TestClaimRequiresStaffID(t *testing.T) {
	env := setupCLITestEnv(t)
	t.Setenv("USER", "")
	room := testsupport.NewRoom(t, env.store, "cust-2")
	if _, _, err := env.run(t, "rooms", "claim", room.ID); err == nil {
		t.Fatal("expected claim without a staff id to fail")
	}
}

func TestNotificationsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.run(t, "notifications", "--unread")
	if err != nil {
		t.Fatalf("notifications: %v", err)
	}
	requireContains(t, out, "No notifications")
}

func TestStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewRoom(t, env.store, "cust-3")

	out, _, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "Unclaimed rooms")

	out, _, err = env.run(t, "status", "--json")
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.Stats.UnclaimedRooms != 1 {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestStatusOffline(t *testing.T) {
	env := setupOfflineEnv(t)
	out, _, err := env.run(t, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")
}

func TestTokenIssue(t *testing.T) {
	env := setupOfflineEnv(t)
	out, _, err := env.run(t, "token", "issue", "--user", "staff-7", "--role", "staff", "--name", "Sam")
	if err != nil {
		t.Fatalf("token issue: %v", err)
	}
	id, err := auth.NewVerifier(env.cfg.Auth).Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != "staff-7" || id.Role != auth.RoleStaff || id.Name != "Sam" {
		t.Fatalf("unexpected identity %#v", id)
	}

	if _, _, err := env.run(t, "token", "issue", "--user", "x", "--role", "admin"); err == nil {
		t.Fatal("expected unknown role to fail")
	}
}

func TestAssistantAsk(t *testing.T) {
	env := setupOfflineEnv(t)

	out, _, err := env.run(t, "assistant", "ask", "where", "is", "my", "payout")
	if err != nil {
		t.Fatalf("assistant ask: %v", err)
	}
	requireContains(t, out, "sign_in")

	out, _, err = env.run(t, "assistant", "ask", "--as", "cust-1", "--json", "where is my payout")
	if err != nil {
		t.Fatalf("assistant ask --as: %v", err)
	}
	var reply api.AssistantReply
	if err := json.Unmarshal([]byte(out), &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if !reply.Escalate || reply.Branch != "transfer" {
		t.Fatalf("unexpected reply %#v", reply)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupOfflineEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")

	out, _, err := env.run(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, target)
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config: %v", err)
	}
	if _, _, err := env.run(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected existing config to be refused")
	}
	if _, _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)
}

func TestConfigValidateRejectsShortSecret(t *testing.T) {
	env := setupOfflineEnv(t)
	t.Setenv("REELDESK_JWT_SECRET", "")
	cfg := *env.cfg
	cfg.Auth = config.Auth{JWTSecret: "short", Issuer: cfg.Auth.Issuer, TokenTTLHours: cfg.Auth.TokenTTLHours}
	writeTestConfig(t, env.configPath, &cfg)

	if _, _, err := env.run(t, "config", "validate"); err == nil {
		t.Fatal("expected short secret to fail validation")
	}
}

func TestDoctorThroughDaemon(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := env.run(t, "doctor")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "daemon")
	requireContains(t, out, "reeldesk.db")
}

func TestBillingTiers(t *testing.T) {
	env := setupOfflineEnv(t)
	out, _, err := env.run(t, "billing", "tiers")
	if err != nil {
		t.Fatalf("billing tiers: %v", err)
	}
	requireContains(t, out, "unlimited platforms")
	requireContains(t, out, "49.00 USD/month")
}

func TestBillingSetupRequiresBilling(t *testing.T) {
	env := setupOfflineEnv(t)
	if _, _, err := env.run(t, "billing", "setup"); err == nil {
		t.Fatal("expected setup to fail while billing is disabled")
	}
}
