// Package config defines the top-level configuration for the mempool scanner
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/tonmev/tonmev/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by TONMEV_* environment variables.
type Config struct {
	Feed      FeedConfig      `toml:"feed"`
	PriceFeed PriceFeedConfig `toml:"pricefeed"`
	Strategy  StrategyConfig  `toml:"strategy"`
	Server    ServerConfig    `toml:"server"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	S3        S3Config        `toml:"s3"`
	Archive   ArchiveConfig   `toml:"archive"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// FeedConfig holds mempool gateway parameters.
type FeedConfig struct {
	GatewayURL string `toml:"gateway_url"`
	ReplayPath string `toml:"replay_path"`
}

// PriceFeedConfig controls the optional pool-rate seeder. Observed swaps are
// the primary price source; the seeder keeps the price cache warm during
// quiet stretches by polling an indexer for pool reserves.
type PriceFeedConfig struct {
	Enabled         bool   `toml:"enabled"`
	BaseURL         string `toml:"base_url"`
	IntervalSeconds int    `toml:"interval_seconds"`
}

// StrategyConfig groups per-strategy tuning.
type StrategyConfig struct {
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Sandwich  SandwichConfig  `toml:"sandwich"`
}

// ArbitrageConfig holds tuning for the arbitrage strategy.
type ArbitrageConfig struct {
	Enabled         bool    `toml:"enabled"`
	MinConfidence   float64 `toml:"min_confidence"`
	MinProfit       float64 `toml:"min_profit"`
	MinPriceDiffPct float64 `toml:"min_price_diff_pct"`
	MaxSlippagePct  float64 `toml:"max_slippage_pct"`
	BaseAmount      float64 `toml:"base_amount"`
}

// Domain converts the TOML view into the runtime config value.
func (c ArbitrageConfig) Domain() domain.StrategyConfig {
	return domain.StrategyConfig{
		Enabled:       c.Enabled,
		MinConfidence: c.MinConfidence,
		MinProfit:     c.MinProfit,
		Params: map[string]any{
			"min_price_diff_pct": c.MinPriceDiffPct,
			"max_slippage_pct":   c.MaxSlippagePct,
			"base_amount":        c.BaseAmount,
		},
	}
}

// SandwichConfig holds tuning for the sandwich strategy.
type SandwichConfig struct {
	Enabled           bool     `toml:"enabled"`
	MinConfidence     float64  `toml:"min_confidence"`
	MinProfit         float64  `toml:"min_profit"`
	Dex               string   `toml:"dex"`
	TargetPairs       []string `toml:"target_pairs"`
	MinTargetSwapSize float64  `toml:"min_target_swap_size"`
	FrontRunFraction  float64  `toml:"front_run_fraction"`
	BackRunFraction   float64  `toml:"back_run_fraction"`
	GasBase           float64  `toml:"gas_base"`
	GasRate           float64  `toml:"gas_rate"`
	GasCeiling        float64  `toml:"gas_ceiling"`
	SimulateMissing   bool     `toml:"simulate_missing"`
	FallbackPair      string   `toml:"fallback_pair"`
	FallbackSwapSize  float64  `toml:"fallback_swap_size"`
}

// Domain converts the TOML view into the runtime config value.
func (c SandwichConfig) Domain() domain.StrategyConfig {
	return domain.StrategyConfig{
		Enabled:       c.Enabled,
		MinConfidence: c.MinConfidence,
		MinProfit:     c.MinProfit,
		Params: map[string]any{
			"dex":                  c.Dex,
			"target_pairs":         c.TargetPairs,
			"min_target_swap_size": c.MinTargetSwapSize,
			"front_run_fraction":   c.FrontRunFraction,
			"back_run_fraction":    c.BackRunFraction,
			"gas_base":             c.GasBase,
			"gas_rate":             c.GasRate,
			"gas_ceiling":          c.GasCeiling,
			"simulate_missing":     c.SimulateMissing,
			"fallback_pair":        c.FallbackPair,
			"fallback_swap_size":   c.FallbackSwapSize,
		},
	}
}

// ServerConfig holds the HTTP/WebSocket API parameters.
type ServerConfig struct {
	Enabled        bool     `toml:"enabled"`
	Port           int      `toml:"port"`
	CORSOrigins    []string `toml:"cors_origins"`
	APIKey         string   `toml:"api_key"`
	RateLimit      int      `toml:"rate_limit"`
	RateLimitWinMS int      `toml:"rate_limit_window_ms"`
}

// RedisConfig holds Redis connection parameters for the optional signal bus
// and API rate limiter.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds connection parameters for the optional strategy
// config store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	MaxConns      int    `toml:"pool_max_conns"`
	MinConns      int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// S3Config holds S3-compatible object storage parameters for the optional
// opportunity archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the periodic opportunity-history snapshot upload.
type ArchiveConfig struct {
	Enabled         bool   `toml:"enabled"`
	IntervalMinutes int    `toml:"interval_minutes"`
	Prefix          string `toml:"prefix"`
}

// NotifyConfig holds alerting parameters.
type NotifyConfig struct {
	Enabled           bool    `toml:"enabled"`
	MinProfitAlert    float64 `toml:"min_profit_alert"`
	TelegramToken     string  `toml:"telegram_token"`
	TelegramChatID    string  `toml:"telegram_chat_id"`
	DiscordWebhookURL string  `toml:"discord_webhook_url"`
}

// Defaults returns the built-in configuration. Loaded files and env
// overrides are merged on top of these values.
func Defaults() Config {
	return Config{
		Feed: FeedConfig{
			GatewayURL: "wss://mempool.tonapi.io/v1/stream",
		},
		PriceFeed: PriceFeedConfig{
			BaseURL:         "https://api.dedust.io",
			IntervalSeconds: 30,
		},
		Strategy: StrategyConfig{
			Arbitrage: ArbitrageConfig{
				Enabled:         true,
				MinConfidence:   0.3,
				MinProfit:       0.01,
				MinPriceDiffPct: 1.0,
				MaxSlippagePct:  0.5,
				BaseAmount:      10.0,
			},
			Sandwich: SandwichConfig{
				Enabled:           true,
				MinConfidence:     0.5,
				MinProfit:         0.01,
				Dex:               "DeDust",
				TargetPairs:       []string{"TON/USDT", "TON/USDC"},
				MinTargetSwapSize: 10.0,
				FrontRunFraction:  0.25,
				BackRunFraction:   0.1,
				GasBase:           0.05,
				GasRate:           0.001,
				GasCeiling:        0.3,
				SimulateMissing:   true,
				FallbackPair:      "TON/USDT",
				FallbackSwapSize:  25.0,
			},
		},
		Server: ServerConfig{
			Enabled:        true,
			Port:           8080,
			RateLimit:      60,
			RateLimitWinMS: 60_000,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Postgres: PostgresConfig{
			Port:    5432,
			SSLMode: "disable",
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Archive: ArchiveConfig{
			IntervalMinutes: 30,
			Prefix:          "opportunities",
		},
		Notify: NotifyConfig{
			MinProfitAlert: 0.5,
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// Validate checks cross-field invariants that the pipeline relies on.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "scan", "serve", "replay":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}
	if c.Mode == "replay" && c.Feed.ReplayPath == "" {
		return fmt.Errorf("config: replay mode requires feed.replay_path")
	}
	if c.Mode != "replay" && c.Feed.GatewayURL == "" {
		return fmt.Errorf("config: feed.gateway_url is required")
	}
	if c.PriceFeed.Enabled {
		if c.PriceFeed.BaseURL == "" {
			return fmt.Errorf("config: pricefeed enabled but base_url not set")
		}
		if c.PriceFeed.IntervalSeconds <= 0 {
			return fmt.Errorf("config: pricefeed.interval_seconds must be positive")
		}
	}

	for name, mc := range map[string]float64{
		"strategy.arbitrage.min_confidence": c.Strategy.Arbitrage.MinConfidence,
		"strategy.sandwich.min_confidence":  c.Strategy.Sandwich.MinConfidence,
	} {
		if mc < 0 || mc > 1 {
			return fmt.Errorf("config: %s must be in [0,1], got %v", name, mc)
		}
	}

	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Postgres.Enabled && c.Postgres.DSN == "" && c.Postgres.Host == "" {
		return fmt.Errorf("config: postgres enabled but neither dsn nor host set")
	}
	if c.Archive.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("config: archive enabled but s3.bucket not set")
		}
		if c.Archive.IntervalMinutes <= 0 {
			return fmt.Errorf("config: archive.interval_minutes must be positive")
		}
	}
	if c.Notify.Enabled && c.Notify.TelegramToken == "" && c.Notify.DiscordWebhookURL == "" {
		return fmt.Errorf("config: notify enabled but no sender configured")
	}
	return nil
}
