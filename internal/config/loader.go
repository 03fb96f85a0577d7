package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TONMEV_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. A missing file is not an
// error: defaults plus env overrides still apply.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TONMEV_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "TONMEV_MODE")
	setStr(&cfg.LogLevel, "TONMEV_LOG_LEVEL")

	setStr(&cfg.Feed.GatewayURL, "TONMEV_FEED_GATEWAY_URL")
	setStr(&cfg.Feed.ReplayPath, "TONMEV_FEED_REPLAY_PATH")

	setBool(&cfg.PriceFeed.Enabled, "TONMEV_PRICEFEED_ENABLED")
	setStr(&cfg.PriceFeed.BaseURL, "TONMEV_PRICEFEED_BASE_URL")
	setInt(&cfg.PriceFeed.IntervalSeconds, "TONMEV_PRICEFEED_INTERVAL_SECONDS")

	setBool(&cfg.Server.Enabled, "TONMEV_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TONMEV_SERVER_PORT")
	setStr(&cfg.Server.APIKey, "TONMEV_SERVER_API_KEY")

	setBool(&cfg.Redis.Enabled, "TONMEV_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TONMEV_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TONMEV_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TONMEV_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "TONMEV_REDIS_TLS_ENABLED")

	setBool(&cfg.Postgres.Enabled, "TONMEV_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "TONMEV_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TONMEV_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TONMEV_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TONMEV_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TONMEV_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TONMEV_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TONMEV_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "TONMEV_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.S3.Endpoint, "TONMEV_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TONMEV_S3_REGION")
	setStr(&cfg.S3.Bucket, "TONMEV_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TONMEV_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TONMEV_S3_SECRET_KEY")
	setBool(&cfg.Archive.Enabled, "TONMEV_ARCHIVE_ENABLED")

	setBool(&cfg.Notify.Enabled, "TONMEV_NOTIFY_ENABLED")
	setStr(&cfg.Notify.TelegramToken, "TONMEV_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TONMEV_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TONMEV_NOTIFY_DISCORD_WEBHOOK_URL")
}

func setStr(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
