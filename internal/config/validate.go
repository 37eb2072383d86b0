package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

const minJWTSecretLength = 16

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAuth(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateBilling(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAuth() error {
	if c.Auth.JWTSecret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("auth.jwt_secret is required. Set REELDESK_JWT_SECRET env var or edit %s (create with 'reeldesk config init')", defaultPath)
	}
	if len(c.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d characters", minJWTSecretLength)
	}
	return nil
}

func (c *Config) validatePaths() error {
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateFeed() error {
	if c.Feed.RedisURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.Feed.RedisURL)
	if err != nil {
		return fmt.Errorf("feed.redis_url: %w", err)
	}
	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" {
		return errors.New("feed.redis_url must use the redis:// or rediss:// scheme")
	}
	return nil
}

func (c *Config) validateBilling() error {
	if !c.Billing.Enabled {
		return nil
	}
	if c.Billing.ClientID == "" {
		return errors.New("billing.client_id must be set when billing.enabled is true (or export PAYPAL_CLIENT_ID)")
	}
	if c.Billing.ClientSecret == "" {
		return errors.New("billing.client_secret must be set when billing.enabled is true (or export PAYPAL_CLIENT_SECRET)")
	}
	for name, value := range map[string]string{
		"billing.base_url":   c.Billing.BaseURL,
		"billing.return_url": c.Billing.ReturnURL,
		"billing.cancel_url": c.Billing.CancelURL,
	} {
		if value == "" {
			return fmt.Errorf("%s must be set when billing.enabled is true", name)
		}
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL", name)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return errors.New("notifications.ntfy_topic must be a full URL (e.g. https://ntfy.sh/reeldesk-staff)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
