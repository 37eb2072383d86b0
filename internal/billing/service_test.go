package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"reeldesk/internal/auth"
	"reeldesk/internal/billing"
	"reeldesk/internal/logging"
	"reeldesk/internal/services"
	"reeldesk/internal/store"
	"reeldesk/internal/testsupport"
)

type fakeProvider struct {
	mu            sync.Mutex
	subscriptions map[string]billing.Subscription
	plans         []map[string]any
	tokenCalls    int
	lastReturnURL string
}

func newFakeProvider(t *testing.T) (*fakeProvider, *httptest.Server) {
	t.Helper()
	fp := &fakeProvider{subscriptions: map[string]billing.Subscription{}}
	srv := httptest.NewServer(http.HandlerFunc(fp.serve))
	t.Cleanup(srv.Close)
	return fp, srv
}

func (f *fakeProvider) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/v1/oauth2/token" {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-client" || pass != "test-client-secret" {
			http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
			return
		}
		f.tokenCalls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
		return
	}
	if r.Header.Get("Authorization") != "Bearer tok-123" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/catalogs/products":
		_ = json.NewEncoder(w).Encode(billing.Product{ID: "PROD-1", Name: "Reeldesk Distribution", Type: "SERVICE"})
	case r.Method == http.MethodPost && r.URL.Path == "/v1/billing/plans":
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.plans = append(f.plans, body)
		id := "P-" + strings.ToUpper(strings.Fields(body["name"].(string))[1])
		_ = json.NewEncoder(w).Encode(billing.Plan{ID: id, ProductID: "PROD-1", Status: "ACTIVE"})
	case r.Method == http.MethodPost && r.URL.Path == "/v1/billing/subscriptions":
		var body struct {
			PlanID   string `json:"plan_id"`
			CustomID string `json:"custom_id"`
			Context  struct {
				ReturnURL string `json:"return_url"`
			} `json:"application_context"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastReturnURL = body.Context.ReturnURL
		sub := billing.Subscription{
			ID:       "I-" + body.CustomID,
			Status:   billing.StatusApprovalPending,
			PlanID:   body.PlanID,
			CustomID: body.CustomID,
			Links:    []billing.Link{{Rel: "approve", Href: "https://paypal.test/approve/I-" + body.CustomID}},
		}
		f.subscriptions[sub.ID] = sub
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(sub)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/billing/subscriptions/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/billing/subscriptions/")
		sub, ok := f.subscriptions[id]
		if !ok {
			http.Error(w, `{"name":"RESOURCE_NOT_FOUND"}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(sub)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeProvider) approve(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := f.subscriptions[id]
	sub.Status = billing.StatusActive
	f.subscriptions[id] = sub
}

func (f *fakeProvider) snapshot() (returnURL string, tokenCalls, plans int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReturnURL, f.tokenCalls, len(f.plans)
}

func newService(t *testing.T) (*billing.Service, *fakeProvider, *store.Store) {
	t.Helper()
	fp, srv := newFakeProvider(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBilling(srv.URL))
	st := testsupport.MustOpenStore(t, cfg)
	return billing.NewService(cfg.Billing, st, logging.NewNop()), fp, st
}

var ana = auth.Identity{UserID: "cust-1", Role: auth.RoleCustomer, Name: "Ana"}

func TestSubscriptionLifecycle(t *testing.T) {
	svc, fp, _ := newService(t)
	ctx := context.Background()

	checkout, err := svc.StartSubscription(ctx, ana, store.TierPro)
	if err != nil {
		t.Fatalf("StartSubscription: %v", err)
	}
	if checkout.ApprovalURL != "https://paypal.test/approve/I-cust-1" {
		t.Fatalf("unexpected approval url %q", checkout.ApprovalURL)
	}
	returnURL, _, _ := fp.snapshot()
	ret, err := url.Parse(returnURL)
	if err != nil {
		t.Fatalf("parse return url: %v", err)
	}
	flags := billing.ParseReturnFlags(ret.Query())
	if !flags.Success || flags.Plan != "pro" {
		t.Fatalf("return url should carry success and plan flags: %q", returnURL)
	}

	if _, err := svc.Activate(ctx, ana, checkout.SubscriptionID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected pending subscription to be refused, got %v", err)
	}

	fp.approve(checkout.SubscriptionID)
	account, err := svc.Activate(ctx, ana, checkout.SubscriptionID)
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if account.Tier != store.TierPro || account.SubscriptionID != checkout.SubscriptionID || account.PlanID != "P-PRO" {
		t.Fatalf("unexpected account %+v", account)
	}
	if _, tokenCalls, _ := fp.snapshot(); tokenCalls != 1 {
		t.Fatalf("expected token to be reused, fetched %d times", tokenCalls)
	}
}

func TestActivateRejectsForeignSubscription(t *testing.T) {
	svc, fp, st := newService(t)
	ctx := context.Background()

	checkout, err := svc.StartSubscription(ctx, ana, store.TierPremium)
	if err != nil {
		t.Fatalf("StartSubscription: %v", err)
	}
	fp.approve(checkout.SubscriptionID)

	mallory := auth.Identity{UserID: "cust-2", Role: auth.RoleCustomer}
	if _, err := svc.Activate(ctx, mallory, checkout.SubscriptionID); !errors.Is(err, services.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	account, err := st.GetAccount(ctx, mallory.UserID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if account.Tier != store.TierFree {
		t.Fatalf("foreign activation must not change tier, got %s", account.Tier)
	}
}

func TestActivateUnknownSubscription(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.Activate(context.Background(), ana, "I-missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStartSubscriptionRequiresPaidTier(t *testing.T) {
	svc, _, _ := newService(t)
	if _, err := svc.StartSubscription(context.Background(), ana, store.TierFree); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDisabledBilling(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	svc := billing.NewService(cfg.Billing, st, logging.NewNop())
	ctx := context.Background()

	if svc.Enabled() {
		t.Fatal("expected billing disabled by default")
	}
	if _, err := svc.StartSubscription(ctx, ana, store.TierPro); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	account, err := svc.Account(ctx, ana)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if account.Tier != store.TierFree {
		t.Fatalf("expected free tier, got %s", account.Tier)
	}
}

func TestSetupCatalogCreatesPaidPlans(t *testing.T) {
	svc, fp, _ := newService(t)

	catalog, err := svc.SetupCatalog(context.Background())
	if err != nil {
		t.Fatalf("SetupCatalog: %v", err)
	}
	if catalog.ProductID != "PROD-1" || catalog.ProPlanID != "P-PRO" || catalog.PremiumPlanID != "P-PREMIUM" {
		t.Fatalf("unexpected catalog %+v", catalog)
	}
	if _, _, plans := fp.snapshot(); plans != 2 {
		t.Fatalf("expected two plans, got %d", plans)
	}
}

func TestParseReturnFlags(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  billing.ReturnFlags
	}{
		{name: "success", query: "success=true&plan=Pro&subscription_id=I-1", want: billing.ReturnFlags{Success: true, Plan: "pro", SubscriptionID: "I-1"}},
		{name: "canceled bare flag", query: "canceled&plan=premium", want: billing.ReturnFlags{Canceled: true, Plan: "premium"}},
		{name: "a la carte", query: "success=1&a_la_carte=true", want: billing.ReturnFlags{Success: true, ALaCarte: true}},
		{name: "false values", query: "success=false&canceled=nope", want: billing.ReturnFlags{}},
		{name: "empty", query: "", want: billing.ReturnFlags{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("ParseQuery: %v", err)
			}
			if got := billing.ParseReturnFlags(q); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTierLimits(t *testing.T) {
	if got := billing.TierLimits(store.TierPremium).PlatformsLabel(); got != "unlimited platforms" {
		t.Fatalf("premium platforms: %q", got)
	}
	if got := billing.TierLimits(store.TierPro).CommissionLabel(); got != "15%" {
		t.Fatalf("pro commission: %q", got)
	}
	if got := billing.TierLimits("unknown").Tier; got != store.TierFree {
		t.Fatalf("unknown tier should fall back to free, got %s", got)
	}
	if billing.TierLimits(store.TierFree).Paid() {
		t.Fatal("free tier should not be paid")
	}
}
