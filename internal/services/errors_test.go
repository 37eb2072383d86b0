package services_test

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"reeldesk/internal/services"
	"reeldesk/internal/store"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternal, "billing", "create subscription", "provider rejected", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"billing", "create subscription", "provider rejected"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarkerIsTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected default detail, got %q", err.Error())
	}
}

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
		kind string
	}{
		{services.Wrap(services.ErrValidation, "handoff", "post", "empty content", nil), http.StatusBadRequest, "validation"},
		{services.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{services.Wrap(services.ErrForbidden, "handoff", "claim", "staff only", nil), http.StatusForbidden, "forbidden"},
		{fmt.Errorf("%w: %w", services.ErrPostRejected, store.ErrRoomClosed), http.StatusForbidden, "post_rejected"},
		{fmt.Errorf("get room: %w", store.ErrNotFound), http.StatusNotFound, "not_found"},
		{services.Wrap(services.ErrConfiguration, "billing", "", "disabled", nil), http.StatusServiceUnavailable, "configuration"},
		{services.Wrap(services.ErrExternal, "billing", "", "", errors.New("502")), http.StatusBadGateway, "external"},
		{errors.New("disk full"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		if got := services.StatusCode(tc.err); got != tc.want {
			t.Errorf("StatusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
		if got := services.Kind(tc.err); got != tc.kind {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
	}
	if services.StatusCode(nil) != http.StatusOK {
		t.Error("expected 200 for nil error")
	}
}
