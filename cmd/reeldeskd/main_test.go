package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestRejectsInvalidConfig(t *testing.T) {
	t.Setenv("REELDESK_JWT_SECRET", "")
	t.Setenv("HOME", t.TempDir())
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.toml")})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected missing signing secret to fail")
	}
	if !strings.Contains(err.Error(), "load config") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRejectsPositionalArgs(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"extra"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected positional arguments to be rejected")
	}
}
