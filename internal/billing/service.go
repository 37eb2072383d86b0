package billing

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"reeldesk/internal/auth"
	"reeldesk/internal/config"
	"reeldesk/internal/logging"
	"reeldesk/internal/metrics"
	"reeldesk/internal/services"
	"reeldesk/internal/store"
)

// AccountStore persists customer tiers.
type AccountStore interface {
	GetAccount(ctx context.Context, customerID string) (*store.Account, error)
	SetAccountTier(ctx context.Context, customerID string, tier store.Tier, subscriptionID, planID string) error
}

// Checkout is a pending subscription the customer still has to approve.
type Checkout struct {
	SubscriptionID string
	Tier           store.Tier
	ApprovalURL    string
}

// Catalog holds the identifiers created by SetupCatalog.
type Catalog struct {
	ProductID     string
	ProPlanID     string
	PremiumPlanID string
}

// Service runs the subscription lifecycle and flips account tiers.
type Service struct {
	cfg    config.Billing
	client *Client
	store  AccountStore
	logger *slog.Logger
}

// NewService wires the billing service. When billing is disabled the
// service still answers Account but refuses to start subscriptions.
func NewService(cfg config.Billing, st AccountStore, logger *slog.Logger) *Service {
	svc := &Service{
		cfg:    cfg,
		store:  st,
		logger: logging.NewComponentLogger(logger, "billing"),
	}
	if cfg.Enabled {
		svc.client = NewClient(cfg)
	}
	return svc
}

// Enabled reports whether a payment provider is configured.
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

// Account returns the customer's billing state.
func (s *Service) Account(ctx context.Context, customer auth.Identity) (*store.Account, error) {
	if customer.Role != auth.RoleCustomer {
		return nil, services.Wrap(services.ErrForbidden, "billing", "account", "only customers hold accounts", nil)
	}
	account, err := s.store.GetAccount(ctx, customer.UserID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return account, nil
}

// StartSubscription creates a provider subscription for tier and returns the approval link.
func (s *Service) StartSubscription(ctx context.Context, customer auth.Identity, tier store.Tier) (Checkout, error) {
	if !s.Enabled() {
		return Checkout{}, services.Wrap(services.ErrConfiguration, "billing", "subscribe", "billing is not enabled", nil)
	}
	if customer.Role != auth.RoleCustomer {
		return Checkout{}, services.Wrap(services.ErrForbidden, "billing", "subscribe", "only customers can subscribe", nil)
	}
	planID := s.planFor(tier)
	if planID == "" {
		return Checkout{}, services.Wrap(services.ErrValidation, "billing", "subscribe", fmt.Sprintf("no plan configured for tier %q", tier), nil)
	}

	sub, err := s.client.CreateSubscription(ctx, SubscriptionRequest{
		PlanID:    planID,
		CustomID:  customer.UserID,
		BrandName: s.cfg.BrandName,
		ReturnURL: withQuery(s.cfg.ReturnURL, url.Values{"success": {"true"}, "plan": {string(tier)}}),
		CancelURL: withQuery(s.cfg.CancelURL, url.Values{"canceled": {"true"}, "plan": {string(tier)}}),
	})
	if err != nil {
		logging.WarnWithContext(s.logger, "subscription create failed", "billing_subscribe_failed",
			logging.UserID(customer.UserID),
			logging.String("tier", string(tier)),
			logging.Error(err),
			logging.ErrorHint("verify billing.client_id and plan ids"),
		)
		return Checkout{}, err
	}
	approval := sub.ApprovalURL()
	if approval == "" {
		return Checkout{}, services.Wrap(services.ErrExternal, "billing", "subscribe", "provider returned no approval link", nil)
	}
	s.logger.Info("subscription created",
		logging.EventType("billing_subscription_created"),
		logging.UserID(customer.UserID),
		logging.String("subscription_id", sub.ID),
		logging.String("tier", string(tier)),
	)
	return Checkout{SubscriptionID: sub.ID, Tier: tier, ApprovalURL: approval}, nil
}

// Activate verifies the subscription with the provider and upgrades the
// customer's tier. The subscription must be ACTIVE or APPROVED and must
// have been created for this customer.
func (s *Service) Activate(ctx context.Context, customer auth.Identity, subscriptionID string) (*store.Account, error) {
	if !s.Enabled() {
		return nil, services.Wrap(services.ErrConfiguration, "billing", "activate", "billing is not enabled", nil)
	}
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, services.Wrap(services.ErrValidation, "billing", "activate", "subscription id is required", nil)
	}
	if customer.Role != auth.RoleCustomer {
		return nil, services.Wrap(services.ErrForbidden, "billing", "activate", "only customers can activate subscriptions", nil)
	}

	sub, err := s.client.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.CustomID != customer.UserID {
		return nil, services.Wrap(services.ErrForbidden, "billing", "activate", "subscription belongs to another customer", nil)
	}
	if !sub.Activated() {
		return nil, services.Wrap(services.ErrValidation, "billing", "activate", fmt.Sprintf("subscription is %s", sub.Status), nil)
	}
	tier, ok := s.tierFor(sub.PlanID)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "billing", "activate", fmt.Sprintf("unknown plan %q", sub.PlanID), nil)
	}

	if err := s.store.SetAccountTier(ctx, customer.UserID, tier, sub.ID, sub.PlanID); err != nil {
		logging.ErrorWithContext(s.logger, "tier update failed", "billing_activate_failed",
			logging.UserID(customer.UserID),
			logging.String("subscription_id", sub.ID),
			logging.Error(err),
			logging.Impact("customer paid but tier was not upgraded"),
		)
		return nil, fmt.Errorf("update account tier: %w", err)
	}
	metrics.SubscriptionActivations.WithLabelValues(string(tier)).Inc()
	s.logger.Info("subscription activated",
		logging.EventType("billing_subscription_activated"),
		logging.UserID(customer.UserID),
		logging.String("subscription_id", sub.ID),
		logging.String("tier", string(tier)),
	)
	return s.store.GetAccount(ctx, customer.UserID)
}

// SetupCatalog creates the product and the paid plans at the provider. The
// returned ids belong in billing.pro_plan_id and billing.premium_plan_id.
func (s *Service) SetupCatalog(ctx context.Context) (Catalog, error) {
	if !s.Enabled() {
		return Catalog{}, services.Wrap(services.ErrConfiguration, "billing", "setup", "billing is not enabled", nil)
	}
	brand := s.cfg.BrandName
	product, err := s.client.CreateProduct(ctx, brand+" Distribution", brand+" film distribution membership")
	if err != nil {
		return Catalog{}, err
	}
	catalog := Catalog{ProductID: product.ID}
	for _, limits := range AllTiers() {
		if !limits.Paid() {
			continue
		}
		plan, err := s.client.CreatePlan(ctx, PlanRequest{
			ProductID:   product.ID,
			Name:        fmt.Sprintf("%s %s", brand, titleTier(limits.Tier)),
			Description: fmt.Sprintf("%s, %s commission", limits.PlatformsLabel(), limits.CommissionLabel()),
			Price:       limits.MonthlyPrice,
			Currency:    Currency,
		})
		if err != nil {
			return catalog, err
		}
		switch limits.Tier {
		case store.TierPro:
			catalog.ProPlanID = plan.ID
		case store.TierPremium:
			catalog.PremiumPlanID = plan.ID
		}
	}
	return catalog, nil
}

func (s *Service) planFor(tier store.Tier) string {
	switch tier {
	case store.TierPro:
		return s.cfg.ProPlanID
	case store.TierPremium:
		return s.cfg.PremiumPlanID
	default:
		return ""
	}
}

func (s *Service) tierFor(planID string) (store.Tier, bool) {
	switch {
	case planID == "":
		return "", false
	case planID == s.cfg.ProPlanID:
		return store.TierPro, true
	case planID == s.cfg.PremiumPlanID:
		return store.TierPremium, true
	default:
		return "", false
	}
}

// ReturnFlags are the query flags carried on the return and cancel URLs.
type ReturnFlags struct {
	Success        bool
	Canceled       bool
	ALaCarte       bool
	Plan           string
	SubscriptionID string
}

// ParseReturnFlags reads the flags the provider redirect carries back.
// A flag present without a value counts as set.
func ParseReturnFlags(q url.Values) ReturnFlags {
	return ReturnFlags{
		Success:        flag(q, "success"),
		Canceled:       flag(q, "canceled"),
		ALaCarte:       flag(q, "a_la_carte"),
		Plan:           strings.ToLower(strings.TrimSpace(q.Get("plan"))),
		SubscriptionID: strings.TrimSpace(q.Get("subscription_id")),
	}
}

func flag(q url.Values, key string) bool {
	values, ok := q[key]
	if !ok {
		return false
	}
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return true
	}
	v, err := strconv.ParseBool(strings.TrimSpace(values[0]))
	return err == nil && v
}

func withQuery(raw string, extra url.Values) string {
	u, err := url.Parse(raw)
	if err != nil || raw == "" {
		return raw
	}
	q := u.Query()
	for k, vs := range extra {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
