package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tonmev/tonmev/internal/domain"
	"github.com/tonmev/tonmev/internal/feed"
	"github.com/tonmev/tonmev/internal/pipeline"
	"github.com/tonmev/tonmev/internal/server"
	"github.com/tonmev/tonmev/internal/server/handler"
	"github.com/tonmev/tonmev/internal/server/ws"
	"github.com/tonmev/tonmev/internal/strategy"
	"github.com/tonmev/tonmev/internal/txparse"
)

// opportunityChannel is the signal-bus channel detected opportunities are
// published on when Redis is wired.
const opportunityChannel = "tonmev:opportunities"

// ScanMode runs the live pipeline: mempool feed, strategy analysis, and the
// HTTP/WebSocket API when enabled.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode",
		slog.String("gateway", a.cfg.Feed.GatewayURL),
	)

	g, ctx := errgroup.WithContext(ctx)

	a.wireSignalBus(ctx, deps)

	mempoolFeed := feed.NewMempoolFeed(a.cfg.Feed.GatewayURL, a.packetHandler(deps), a.logger)
	g.Go(func() error {
		return mempoolFeed.Run(ctx)
	})

	if deps.PoolClient != nil {
		seeder := pipeline.NewPriceSeeder(deps.Venues, deps.Prices, deps.PoolClient, a.logger)
		interval := time.Duration(a.cfg.PriceFeed.IntervalSeconds) * time.Second
		g.Go(func() error {
			err := seeder.RunLoop(ctx, interval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	}
	a.startArchiver(ctx, g, deps)

	return g.Wait()
}

// ServeMode runs only the API surface. Nothing feeds the pipeline; the mode
// exists for inspecting and editing strategy configuration without a live
// gateway connection.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// ReplayMode feeds a captured NDJSON packet file through the pipeline, logs
// the resulting statistics, and exits. When archiving is wired a final
// snapshot is uploaded so the run's output survives the process.
func (a *App) ReplayMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting replay mode",
		slog.String("path", a.cfg.Feed.ReplayPath),
	)

	replay := feed.NewReplay(a.cfg.Feed.ReplayPath, a.packetHandler(deps), a.logger)
	if err := replay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := deps.Manager.Statistics()
	a.logger.InfoContext(ctx, "replay complete",
		slog.Int("strategies", stats.TotalStrategies),
		slog.Int("opportunities", stats.TotalOpportunities),
	)
	for _, row := range stats.PerStrategy {
		a.logger.InfoContext(ctx, "strategy summary",
			slog.String("strategy", row.Name),
			slog.Int("opportunities", row.Count),
			slog.Float64("total_profit", row.TotalProfit),
			slog.Float64("average_profit", row.AverageProfit),
		)
	}

	if deps.SnapshotWriter != nil {
		arch := pipeline.NewArchiver(
			deps.Manager, deps.SnapshotWriter,
			time.Minute, a.cfg.Archive.Prefix, a.logger,
		)
		if err := arch.Snapshot(ctx); err != nil {
			a.logger.WarnContext(ctx, "final snapshot failed", slog.String("error", err.Error()))
		}
	}
	return nil
}

// packetHandler builds the feed callback: extract transactions, fan the
// packet out to strategies.
func (a *App) packetHandler(deps *Dependencies) feed.PacketHandler {
	return func(ctx context.Context, pkt *domain.MempoolPacket) {
		txparse.Extract(pkt)
		deps.Manager.AnalyzePacket(ctx, pkt)
	}
}

// wireSignalBus publishes every detected opportunity to Redis so external
// consumers can subscribe without touching the HTTP API. No-op when Redis is
// not wired.
func (a *App) wireSignalBus(ctx context.Context, deps *Dependencies) {
	if deps.SignalBus == nil {
		return
	}
	deps.Manager.Subscribe(func(opps []domain.Opportunity) {
		for _, opp := range opps {
			data, err := json.Marshal(opp)
			if err != nil {
				continue
			}
			if err := deps.SignalBus.Publish(ctx, opportunityChannel, data); err != nil {
				a.logger.WarnContext(ctx, "signal bus publish failed",
					slog.String("error", err.Error()),
				)
				return
			}
		}
	})
}

// startHTTPServer registers the API handlers, the WebSocket hub, and the
// server lifecycle goroutines on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	names := make([]string, 0, 2)
	for _, info := range deps.Manager.Strategies() {
		names = append(names, info.Name)
	}

	hub := ws.NewHub(ws.Config{Mode: a.cfg.Mode, Strategies: names}, a.logger)
	deps.Manager.Subscribe(hub.Broadcast)
	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	handlers := server.Handlers{
		Health:        handler.NewHealthHandler(),
		Opportunities: handler.NewOpportunityHandler(deps.Manager, a.logger),
		Strategies:    handler.NewStrategyHandler(deps.Manager, a.logger),
		Statistics:    handler.NewStatisticsHandler(deps.Manager),
	}

	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  time.Duration(a.cfg.Server.RateLimitWinMS) * time.Millisecond,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// startArchiver runs the periodic opportunity snapshot job when S3 is wired.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.SnapshotWriter == nil {
		return
	}
	arch := pipeline.NewArchiver(
		deps.Manager,
		deps.SnapshotWriter,
		time.Duration(a.cfg.Archive.IntervalMinutes)*time.Minute,
		a.cfg.Archive.Prefix,
		a.logger,
	)
	g.Go(func() error {
		err := arch.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

// compile-time check that the manager satisfies the handler interfaces.
var (
	_ handler.OpportunityService = (*strategy.Manager)(nil)
	_ handler.StrategyService    = (*strategy.Manager)(nil)
	_ handler.StatisticsService  = (*strategy.Manager)(nil)
	_ pipeline.OpportunitySource = (*strategy.Manager)(nil)
)
