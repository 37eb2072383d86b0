package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAuth()
	c.normalizeNotifications()
	c.normalizeFeed()
	c.normalizeBilling()
	c.normalizeLimits()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeAuth() {
	c.Auth.JWTSecret = strings.TrimSpace(c.Auth.JWTSecret)
	if c.Auth.JWTSecret == "" {
		if value, ok := os.LookupEnv("REELDESK_JWT_SECRET"); ok {
			c.Auth.JWTSecret = strings.TrimSpace(value)
		}
	}
	c.Auth.Issuer = strings.TrimSpace(c.Auth.Issuer)
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = defaultAuthIssuer
	}
	if c.Auth.TokenTTLHours <= 0 {
		c.Auth.TokenTTLHours = defaultTokenTTLHours
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("REELDESK_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeFeed() {
	if c.Feed.BufferSize <= 0 {
		c.Feed.BufferSize = defaultFeedBufferSize
	}
	if c.Feed.LongPollSeconds <= 0 {
		c.Feed.LongPollSeconds = defaultFeedLongPollSeconds
	}
	c.Feed.RedisURL = strings.TrimSpace(c.Feed.RedisURL)
	if c.Feed.RedisURL == "" {
		if value, ok := os.LookupEnv("REELDESK_REDIS_URL"); ok {
			c.Feed.RedisURL = strings.TrimSpace(value)
		}
	}
	c.Feed.RedisChannel = strings.TrimSpace(c.Feed.RedisChannel)
	if c.Feed.RedisChannel == "" {
		c.Feed.RedisChannel = defaultFeedRedisChannel
	}
	origins := make([]string, 0, len(c.Feed.AllowedOrigins))
	seen := make(map[string]struct{}, len(c.Feed.AllowedOrigins))
	for _, origin := range c.Feed.AllowedOrigins {
		trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		origins = append(origins, trimmed)
	}
	c.Feed.AllowedOrigins = origins
}

func (c *Config) normalizeBilling() {
	c.Billing.ClientID = strings.TrimSpace(c.Billing.ClientID)
	if c.Billing.ClientID == "" {
		if value, ok := os.LookupEnv("PAYPAL_CLIENT_ID"); ok {
			c.Billing.ClientID = strings.TrimSpace(value)
		}
	}
	c.Billing.ClientSecret = strings.TrimSpace(c.Billing.ClientSecret)
	if c.Billing.ClientSecret == "" {
		if value, ok := os.LookupEnv("PAYPAL_CLIENT_SECRET"); ok {
			c.Billing.ClientSecret = strings.TrimSpace(value)
		}
	}
	c.Billing.BaseURL = strings.TrimRight(strings.TrimSpace(c.Billing.BaseURL), "/")
	if c.Billing.BaseURL == "" {
		c.Billing.BaseURL = defaultBillingBaseURL
	}
	c.Billing.BrandName = strings.TrimSpace(c.Billing.BrandName)
	if c.Billing.BrandName == "" {
		c.Billing.BrandName = defaultBillingBrandName
	}
	c.Billing.ReturnURL = strings.TrimSpace(c.Billing.ReturnURL)
	c.Billing.CancelURL = strings.TrimSpace(c.Billing.CancelURL)
	c.Billing.ProPlanID = strings.TrimSpace(c.Billing.ProPlanID)
	c.Billing.PremiumPlanID = strings.TrimSpace(c.Billing.PremiumPlanID)
	if c.Billing.RequestTimeout <= 0 {
		c.Billing.RequestTimeout = defaultBillingRequestTimeout
	}
}

func (c *Config) normalizeLimits() {
	if c.Limits.MaxMessageBytes <= 0 {
		c.Limits.MaxMessageBytes = defaultMaxMessageBytes
	}
	if c.Limits.MaxDisplayNameBytes <= 0 {
		c.Limits.MaxDisplayNameBytes = defaultMaxDisplayNameBytes
	}
	if c.Limits.ListLimit <= 0 {
		c.Limits.ListLimit = defaultListLimit
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
