package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/tonmev/tonmev/internal/blob/s3"
	"github.com/tonmev/tonmev/internal/cache/redis"
	"github.com/tonmev/tonmev/internal/config"
	"github.com/tonmev/tonmev/internal/domain"
	"github.com/tonmev/tonmev/internal/notify"
	"github.com/tonmev/tonmev/internal/platform/dexapi"
	"github.com/tonmev/tonmev/internal/pricecache"
	"github.com/tonmev/tonmev/internal/store/postgres"
	"github.com/tonmev/tonmev/internal/strategy"
	"github.com/tonmev/tonmev/internal/venue"
)

// Dependencies bundles everything the application modes need. Optional
// integrations (Redis, Postgres, S3, alerting) stay nil when disabled; the
// core pipeline never requires them.
type Dependencies struct {
	Venues  *venue.Registry
	Prices  *pricecache.Cache
	Manager *strategy.Manager

	// Optional integrations.
	RateLimiter    domain.RateLimiter
	SignalBus      domain.SignalBus
	SnapshotWriter domain.SnapshotWriter
	Alerter        *notify.Alerter
	PoolClient     *dexapi.Client
}

// Wire constructs all concrete dependencies from the configuration and
// returns them with a cleanup function for shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Venues: venue.Default(),
		Prices: pricecache.New(),
	}
	if cfg.PriceFeed.Enabled {
		deps.PoolClient = dexapi.New(cfg.PriceFeed.BaseURL)
	}

	// Postgres is optional; without it config edits are process-local.
	var configStore domain.StrategyConfigStore
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.MaxConns,
			MinConns: cfg.Postgres.MinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		configStore = postgres.NewStrategyConfigStore(pgClient.Pool())
	}

	// Redis is optional; it backs the API rate limiter and the external
	// signal bus.
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// S3 is optional; it receives periodic opportunity-history snapshots.
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.SnapshotWriter = s3blob.NewSnapshotWriter(s3Client)
	}

	// Strategies.
	manager := strategy.NewManager(configStore, logger)
	manager.Register(strategy.NewArbitrage(
		cfg.Strategy.Arbitrage.Domain(), deps.Venues, deps.Prices, logger,
	))
	manager.Register(strategy.NewSandwich(
		cfg.Strategy.Sandwich.Domain(), deps.Venues, logger,
	))
	if configStore != nil {
		manager.LoadPersistedConfigs(ctx)
	}
	deps.Manager = manager

	// Alerting.
	if cfg.Notify.Enabled {
		var senders []notify.Sender
		if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
			senders = append(senders, notify.NewTelegramSender(
				cfg.Notify.TelegramToken,
				cfg.Notify.TelegramChatID,
			))
		}
		if cfg.Notify.DiscordWebhookURL != "" {
			senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
		}
		deps.Alerter = notify.NewAlerter(senders, cfg.Notify.MinProfitAlert, logger)
		manager.Subscribe(deps.Alerter.HandleOpportunities)
	}

	return deps, cleanup, nil
}
