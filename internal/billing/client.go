package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"reeldesk/internal/config"
	"reeldesk/internal/services"
)

const userAgent = "Reeldesk-Go/0.1.0"

// Subscription statuses reported by the payment provider.
const (
	StatusApprovalPending = "APPROVAL_PENDING"
	StatusApproved        = "APPROVED"
	StatusActive          = "ACTIVE"
	StatusSuspended       = "SUSPENDED"
	StatusCancelled       = "CANCELLED"
)

// Link is a HATEOAS link returned by the payment provider.
type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// Product is a catalog product that plans hang off.
type Product struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Category    string `json:"category,omitempty"`
}

// Plan is a monthly billing plan.
type Plan struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}

// Subscription is a customer's subscription to a plan.
type Subscription struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	PlanID   string `json:"plan_id"`
	CustomID string `json:"custom_id"`
	Links    []Link `json:"links"`
}

// ApprovalURL returns the link the customer must visit to approve the subscription.
func (s Subscription) ApprovalURL() string {
	for _, l := range s.Links {
		if l.Rel == "approve" {
			return l.Href
		}
	}
	return ""
}

// Activated reports whether the provider has accepted the subscription.
func (s Subscription) Activated() bool {
	return s.Status == StatusActive || s.Status == StatusApproved
}

// PlanRequest describes a monthly plan to create.
type PlanRequest struct {
	ProductID   string
	Name        string
	Description string
	Price       string
	Currency    string
}

// SubscriptionRequest describes a subscription to create.
type SubscriptionRequest struct {
	PlanID    string
	CustomID  string
	BrandName string
	ReturnURL string
	CancelURL string
}

// Client talks to the PayPal REST API with client-credentials auth.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  oauth2.TokenSource
}

// NewClient builds a client for the configured provider. Tokens are fetched
// and refreshed by the oauth2 transport.
func NewClient(cfg config.Billing) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	creds := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: timeout})
	tokens := creds.TokenSource(tokenCtx)
	httpClient := oauth2.NewClient(tokenCtx, tokens)
	httpClient.Timeout = timeout
	return &Client{baseURL: base, http: httpClient, tokens: tokens}
}

// CheckCredentials fetches an access token without calling any API.
func (c *Client) CheckCredentials() error {
	if _, err := c.tokens.Token(); err != nil {
		return services.Wrap(services.ErrExternal, "billing", "token", "credentials rejected", err)
	}
	return nil
}

// CreateProduct registers a service product in the catalog.
func (c *Client) CreateProduct(ctx context.Context, name, description string) (Product, error) {
	req := Product{Name: name, Description: description, Type: "SERVICE", Category: "SOFTWARE"}
	var out Product
	if err := c.do(ctx, http.MethodPost, "/v1/catalogs/products", req, &out); err != nil {
		return Product{}, err
	}
	return out, nil
}

// CreatePlan creates an active monthly plan with a fixed price.
func (c *Client) CreatePlan(ctx context.Context, plan PlanRequest) (Plan, error) {
	currency := plan.Currency
	if currency == "" {
		currency = Currency
	}
	body := map[string]any{
		"product_id":  plan.ProductID,
		"name":        plan.Name,
		"description": plan.Description,
		"status":      "ACTIVE",
		"billing_cycles": []map[string]any{{
			"frequency":    map[string]any{"interval_unit": "MONTH", "interval_count": 1},
			"tenure_type":  "REGULAR",
			"sequence":     1,
			"total_cycles": 0,
			"pricing_scheme": map[string]any{
				"fixed_price": map[string]any{"value": plan.Price, "currency_code": currency},
			},
		}},
		"payment_preferences": map[string]any{
			"auto_bill_outstanding":     true,
			"setup_fee_failure_action":  "CONTINUE",
			"payment_failure_threshold": 3,
		},
	}
	var out Plan
	if err := c.do(ctx, http.MethodPost, "/v1/billing/plans", body, &out); err != nil {
		return Plan{}, err
	}
	return out, nil
}

// CreateSubscription starts a subscription awaiting customer approval.
func (c *Client) CreateSubscription(ctx context.Context, sub SubscriptionRequest) (Subscription, error) {
	body := map[string]any{
		"plan_id":   sub.PlanID,
		"custom_id": sub.CustomID,
		"application_context": map[string]any{
			"brand_name":  sub.BrandName,
			"user_action": "SUBSCRIBE_NOW",
			"return_url":  sub.ReturnURL,
			"cancel_url":  sub.CancelURL,
		},
	}
	var out Subscription
	if err := c.do(ctx, http.MethodPost, "/v1/billing/subscriptions", body, &out); err != nil {
		return Subscription{}, err
	}
	return out, nil
}

// GetSubscription fetches the current state of a subscription.
func (c *Client) GetSubscription(ctx context.Context, id string) (Subscription, error) {
	var out Subscription
	if err := c.do(ctx, http.MethodGet, "/v1/billing/subscriptions/"+id, nil, &out); err != nil {
		return Subscription{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("PayPal-Request-Id", uuid.NewString())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrExternal, "billing", method+" "+path, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := fmt.Sprintf("provider returned %d", resp.StatusCode)
		if text := strings.TrimSpace(string(detail)); text != "" {
			msg += ": " + text
		}
		marker := services.ErrExternal
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, "billing", method+" "+path, msg, nil)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return services.Wrap(services.ErrExternal, "billing", method+" "+path, "decode response", err)
	}
	return nil
}
