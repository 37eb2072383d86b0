package testsupport

import (
	"path/filepath"
	"testing"

	"reeldesk/internal/config"
)

// TestSecret is the signing secret placed on generated test configs.
const TestSecret = "test-secret-0123456789abcdef"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Auth.JWTSecret = TestSecret
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithNtfyTopic points staff push notifications at the given URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithBilling enables billing against the given base URL with test credentials.
func WithBilling(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Billing.Enabled = true
		b.cfg.Billing.BaseURL = baseURL
		b.cfg.Billing.ClientID = "test-client"
		b.cfg.Billing.ClientSecret = "test-client-secret"
		b.cfg.Billing.ReturnURL = "https://reeldesk.test/billing/return"
		b.cfg.Billing.CancelURL = "https://reeldesk.test/billing/cancel"
		b.cfg.Billing.ProPlanID = "P-PRO"
		b.cfg.Billing.PremiumPlanID = "P-PREMIUM"
	}
}

// WithMaxMessageBytes overrides the message size limit.
func WithMaxMessageBytes(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Limits.MaxMessageBytes = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
