package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config { return Defaults() }

	t.Run("unsupported mode", func(t *testing.T) {
		cfg := valid()
		cfg.Mode = "observe"
		assert.Error(t, cfg.Validate())
	})

	t.Run("replay requires path", func(t *testing.T) {
		cfg := valid()
		cfg.Mode = "replay"
		assert.Error(t, cfg.Validate())

		cfg.Feed.ReplayPath = "/tmp/capture.ndjson"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("scan requires gateway url", func(t *testing.T) {
		cfg := valid()
		cfg.Feed.GatewayURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("min confidence range", func(t *testing.T) {
		cfg := valid()
		cfg.Strategy.Arbitrage.MinConfidence = 1.5
		assert.Error(t, cfg.Validate())

		cfg = valid()
		cfg.Strategy.Sandwich.MinConfidence = -0.1
		assert.Error(t, cfg.Validate())
	})

	t.Run("server port range", func(t *testing.T) {
		cfg := valid()
		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())

		cfg.Server.Enabled = false
		assert.NoError(t, cfg.Validate(), "port unchecked when server disabled")
	})

	t.Run("pricefeed", func(t *testing.T) {
		cfg := valid()
		cfg.PriceFeed.Enabled = true
		cfg.PriceFeed.BaseURL = ""
		assert.Error(t, cfg.Validate())

		cfg = valid()
		cfg.PriceFeed.Enabled = true
		cfg.PriceFeed.IntervalSeconds = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("postgres needs dsn or host", func(t *testing.T) {
		cfg := valid()
		cfg.Postgres.Enabled = true
		assert.Error(t, cfg.Validate())

		cfg.Postgres.Host = "localhost"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("archive needs bucket", func(t *testing.T) {
		cfg := valid()
		cfg.Archive.Enabled = true
		assert.Error(t, cfg.Validate())

		cfg.S3.Bucket = "snapshots"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("notify needs a sender", func(t *testing.T) {
		cfg := valid()
		cfg.Notify.Enabled = true
		assert.Error(t, cfg.Validate())

		cfg.Notify.DiscordWebhookURL = "https://discord.test/webhook"
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "replay"
log_level = "debug"

[feed]
replay_path = "/data/capture.ndjson"

[strategy.arbitrage]
min_price_diff_pct = 2.5

[server]
port = 9090
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "replay", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/data/capture.ndjson", cfg.Feed.ReplayPath)
	assert.Equal(t, 2.5, cfg.Strategy.Arbitrage.MinPriceDiffPct)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Untouched sections keep their defaults.
	assert.Equal(t, "wss://mempool.tonapi.io/v1/stream", cfg.Feed.GatewayURL)
	assert.True(t, cfg.Strategy.Sandwich.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err, "missing file falls back to defaults")
	assert.Equal(t, "scan", cfg.Mode)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TONMEV_MODE", "serve")
	t.Setenv("TONMEV_SERVER_PORT", "8181")
	t.Setenv("TONMEV_REDIS_ENABLED", "true")
	t.Setenv("TONMEV_NOTIFY_TELEGRAM_TOKEN", "tok")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "tok", cfg.Notify.TelegramToken)
}

func TestDomainConversion(t *testing.T) {
	cfg := Defaults()

	arb := cfg.Strategy.Arbitrage.Domain()
	assert.True(t, arb.Enabled)
	assert.Equal(t, 0.3, arb.MinConfidence)
	assert.Equal(t, 1.0, arb.Params["min_price_diff_pct"])

	sw := cfg.Strategy.Sandwich.Domain()
	assert.Equal(t, "DeDust", sw.Params["dex"])
	assert.Equal(t, true, sw.Params["simulate_missing"])
	assert.Equal(t, []string{"TON/USDT", "TON/USDC"}, sw.Params["target_pairs"])
}
