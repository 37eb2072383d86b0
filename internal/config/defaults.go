package config

const (
	defaultConfigPath            = "~/.config/reeldesk/config.toml"
	defaultDataDir               = "~/.local/share/reeldesk"
	defaultLogDir                = "~/.local/share/reeldesk/logs"
	defaultAPIBind               = "127.0.0.1:7610"
	defaultAuthIssuer            = "reeldesk"
	defaultTokenTTLHours         = 24
	defaultNotifyRequestTimeout  = 10
	defaultFeedBufferSize        = 1024
	defaultFeedLongPollSeconds   = 25
	defaultFeedRedisChannel      = "reeldesk:feed"
	defaultBillingBaseURL        = "https://api-m.sandbox.paypal.com"
	defaultBillingBrandName      = "Reeldesk"
	defaultBillingRequestTimeout = 20
	defaultMaxMessageBytes       = 4000
	defaultMaxDisplayNameBytes   = 120
	defaultListLimit             = 200
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Auth: Auth{
			Issuer:        defaultAuthIssuer,
			TokenTTLHours: defaultTokenTTLHours,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Escalation:     true,
			Claim:          false,
			Closed:         false,
		},
		Feed: Feed{
			BufferSize:      defaultFeedBufferSize,
			LongPollSeconds: defaultFeedLongPollSeconds,
			RedisChannel:    defaultFeedRedisChannel,
		},
		Billing: Billing{
			BaseURL:        defaultBillingBaseURL,
			BrandName:      defaultBillingBrandName,
			RequestTimeout: defaultBillingRequestTimeout,
		},
		Limits: Limits{
			MaxMessageBytes:     defaultMaxMessageBytes,
			MaxDisplayNameBytes: defaultMaxDisplayNameBytes,
			ListLimit:           defaultListLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
