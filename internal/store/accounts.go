package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetAccount returns the customer's billing state. Customers without a record are on the free tier.
func (s *Store) GetAccount(ctx context.Context, customerID string) (*Account, error) {
	ctx = ensureContext(ctx)
	var (
		tier           string
		subscriptionID sql.NullString
		planID         sql.NullString
		updatedRaw     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tier, subscription_id, plan_id, updated_at FROM accounts WHERE customer_id = ?`,
		customerID,
	).Scan(&tier, &subscriptionID, &planID, &updatedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return &Account{CustomerID: customerID, Tier: TierFree}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	parsed, err := ParseTier(tier)
	if err != nil {
		return nil, err
	}
	account := &Account{
		CustomerID:     customerID,
		Tier:           parsed,
		SubscriptionID: subscriptionID.String,
		PlanID:         planID.String,
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		account.UpdatedAt = updated
	}
	return account, nil
}

// SetAccountTier records the customer's tier together with the subscription that granted it.
func (s *Store) SetAccountTier(ctx context.Context, customerID string, tier Tier, subscriptionID, planID string) error {
	if customerID == "" {
		return errors.New("customer id is required")
	}
	if _, err := ParseTier(string(tier)); err != nil {
		return err
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO accounts (customer_id, tier, subscription_id, plan_id, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(customer_id) DO UPDATE SET
             tier = excluded.tier,
             subscription_id = excluded.subscription_id,
             plan_id = excluded.plan_id,
             updated_at = excluded.updated_at`,
		customerID, tier, nullableString(subscriptionID), nullableString(planID), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set account tier: %w", err)
	}
	return nil
}
