package config

import "github.com/kelseyhightower/envconfig"

type APIConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	Port      string `envconfig:"PORT" default:"8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	DBPoolMaxConns        int32  `envconfig:"DB_POOL_MAX_CONNS" default:"10"`
	DBPoolMinConns        int32  `envconfig:"DB_POOL_MIN_CONNS" default:"2"`
	DBPoolMaxConnLifetime string `envconfig:"DB_POOL_MAX_CONN_LIFETIME" default:"30m"`
	DBPoolMaxConnIdleTime string `envconfig:"DB_POOL_MAX_CONN_IDLE_TIME" default:"5m"`

	// Public base URL for customer-facing tracking links, e.g.
	// https://track.example.com. The reference code is appended.
	TrackingBaseURL string `envconfig:"TRACKING_BASE_URL" required:"true"`

	// Active-config cache.
	ConfigCacheTTL string `envconfig:"CONFIG_CACHE_TTL" default:"30s"`

	// Outbound provider call protection.
	SendRPS           float64 `envconfig:"SEND_RPS" default:"10"`
	SendBurst         int     `envconfig:"SEND_BURST" default:"20"`
	ProviderTimeout   string  `envconfig:"PROVIDER_TIMEOUT" default:"8s"`
	BreakerMaxFails   uint32  `envconfig:"BREAKER_MAX_CONSECUTIVE_FAILS" default:"10"`
	BreakerOpenPeriod string  `envconfig:"BREAKER_OPEN_PERIOD" default:"20s"`
}

type WebhookConfig struct {
	DBDSN     string `envconfig:"DB_DSN" required:"true"`
	Port      string `envconfig:"PORT" default:"8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Must match the exact URL configured as the provider status callback.
	PublicWebhookURL string `envconfig:"PUBLIC_WEBHOOK_URL" required:"true"`
}

func LoadAPI() APIConfig {
	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}

func LoadWebhook() WebhookConfig {
	var cfg WebhookConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
