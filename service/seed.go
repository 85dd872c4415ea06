package service

import (
	"context"

	"animehub/app/auth"
	"animehub/app/config"
	"animehub/app/logger"
	"animehub/app/seed"
)

// RunSeed fills the configured store with fake data.
func RunSeed(ctx context.Context, cfg *config.Config, opts seed.Options, randomSeed uint64) (*seed.Result, error) {
	if cfg.Store == config.StoreMemory {
		logger.Log.Warn("Seeding the in-memory store; the data is gone when this command exits")
	}
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer stores.Close()

	seeder := seed.NewSeeder(stores.Users, stores.Posts, auth.NewBcryptVerifier(auth.DefaultCost), randomSeed)
	return seeder.SeedDev(ctx, opts)
}
