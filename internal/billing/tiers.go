package billing

import (
	"fmt"
	"strings"

	"reeldesk/internal/store"
)

// Unlimited marks a limit with no ceiling.
const Unlimited = -1

// Limits describes what a tier grants.
type Limits struct {
	Tier           store.Tier
	Platforms      int
	CommissionRate float64
	// MonthlyPrice is the plan price in Currency, formatted for the payment provider.
	MonthlyPrice string
}

// Currency is the ISO code every plan is billed in.
const Currency = "USD"

var tierLimits = []Limits{
	{Tier: store.TierFree, Platforms: 2, CommissionRate: 0.30, MonthlyPrice: "0.00"},
	{Tier: store.TierPro, Platforms: 10, CommissionRate: 0.15, MonthlyPrice: "19.00"},
	{Tier: store.TierPremium, Platforms: Unlimited, CommissionRate: 0.10, MonthlyPrice: "49.00"},
}

// TierLimits returns the limits for tier. Unknown tiers get the free limits.
func TierLimits(tier store.Tier) Limits {
	for _, l := range tierLimits {
		if l.Tier == tier {
			return l
		}
	}
	return tierLimits[0]
}

// AllTiers returns the limits of every tier, cheapest first.
func AllTiers() []Limits {
	return append([]Limits(nil), tierLimits...)
}

// PlatformsLabel renders the platform allowance for display.
func (l Limits) PlatformsLabel() string {
	if l.Platforms == Unlimited {
		return "unlimited platforms"
	}
	if l.Platforms == 1 {
		return "1 platform"
	}
	return fmt.Sprintf("%d platforms", l.Platforms)
}

// CommissionLabel renders the commission rate as a whole percentage.
func (l Limits) CommissionLabel() string {
	return fmt.Sprintf("%.0f%%", l.CommissionRate*100)
}

// CommissionSummary describes every tier's commission in one sentence fragment.
func CommissionSummary() string {
	parts := make([]string, 0, len(tierLimits))
	for _, l := range tierLimits {
		parts = append(parts, fmt.Sprintf("%s %s", titleTier(l.Tier), l.CommissionLabel()))
	}
	return strings.Join(parts, ", ")
}

// PlatformSummary describes every tier's platform allowance.
func PlatformSummary() string {
	parts := make([]string, 0, len(tierLimits))
	for _, l := range tierLimits {
		parts = append(parts, fmt.Sprintf("%s %s", titleTier(l.Tier), l.PlatformsLabel()))
	}
	return strings.Join(parts, ", ")
}

// Paid reports whether the tier requires a subscription.
func (l Limits) Paid() bool {
	return l.Tier != store.TierFree
}

func titleTier(tier store.Tier) string {
	s := string(tier)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
