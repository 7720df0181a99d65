package store

import (
	"context"

	"snapscreen/internal/config"
	"snapscreen/internal/errors"
)

// Open builds the store selected by configuration, wrapping it with the
// Redis cache when enabled.
func Open(ctx context.Context, cfg *config.Config, logger *errors.Logger) (Store, error) {
	var s Store

	switch cfg.Storage.Driver {
	case "postgres":
		pg, err := NewPostgresStore(ctx, cfg.Storage.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.Postgres.AutoMigrate {
			if err := pg.EnsureSchema(ctx); err != nil {
				_ = pg.Close()
				return nil, err
			}
		} else if err := pg.VerifySchema(ctx); err != nil {
			logger.LogError(err, "Schema verification failed")
		}
		if cfg.App.SeedSampleData {
			n, err := pg.Seed(ctx)
			if err != nil {
				_ = pg.Close()
				return nil, err
			}
			logger.Debug("Seeded sample scans", "inserted", n)
		}
		s = pg
	default:
		if cfg.App.SeedSampleData {
			s = NewSeededMemoryStore()
		} else {
			s = NewMemoryStore()
		}
		logger.Debug("Using in-memory scan store", "seeded", cfg.App.SeedSampleData)
	}

	if cfg.Storage.Cache.Enabled {
		logger.Info("Scan cache enabled", "address", cfg.Storage.Cache.Address, "ttl", cfg.Storage.Cache.TTL)
		s = NewCachedStore(s, cfg.Storage.Cache, logger)
	}
	return s, nil
}
