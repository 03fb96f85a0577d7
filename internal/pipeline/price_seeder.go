package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/tonmev/tonmev/internal/platform/dexapi"
	"github.com/tonmev/tonmev/internal/pricecache"
	"github.com/tonmev/tonmev/internal/venue"
)

// PoolFetcher retrieves pool state from an external indexer.
type PoolFetcher interface {
	GetPool(ctx context.Context, address string) (dexapi.Pool, error)
}

// PriceSeeder polls pool reserves for every registered instrument and writes
// the implied mid price into the price cache. Observed swaps remain the
// primary price source; seeding only fills gaps during quiet stretches.
type PriceSeeder struct {
	venues  *venue.Registry
	prices  *pricecache.Cache
	fetcher PoolFetcher
	logger  *slog.Logger
}

// NewPriceSeeder creates a PriceSeeder.
func NewPriceSeeder(venues *venue.Registry, prices *pricecache.Cache, fetcher PoolFetcher, logger *slog.Logger) *PriceSeeder {
	return &PriceSeeder{
		venues:  venues,
		prices:  prices,
		fetcher: fetcher,
		logger:  logger.With(slog.String("component", "price_seeder")),
	}
}

// Run executes a single seeding pass over all instruments. Individual pool
// failures are logged and skipped so one dead pool never starves the rest.
func (s *PriceSeeder) Run(ctx context.Context) error {
	seeded := 0
	for _, v := range s.venues.Venues() {
		for _, inst := range v.Instruments {
			if err := ctx.Err(); err != nil {
				return err
			}
			if inst.Address == "" {
				continue
			}

			pool, err := s.fetcher.GetPool(ctx, inst.Address)
			if err != nil {
				s.logger.Warn("pool fetch failed",
					slog.String("venue", v.Name),
					slog.String("pair", inst.Pair),
					slog.String("error", err.Error()),
				)
				continue
			}

			price, ok := pool.MidPrice()
			if !ok {
				s.logger.Warn("pool reserves unusable",
					slog.String("venue", v.Name),
					slog.String("pair", inst.Pair),
				)
				continue
			}

			s.prices.Set(v.Name, inst.Pair, price)
			seeded++
		}
	}

	s.logger.Debug("seeding pass complete", slog.Int("seeded", seeded))
	return nil
}

// RunLoop seeds immediately, then repeats on the interval until ctx is
// cancelled.
func (s *PriceSeeder) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("seeding pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("price seeder stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("seeding pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
