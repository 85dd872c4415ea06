// Package service wires configuration, stores and the HTTP server into a
// running process.
package service

import (
	"context"
	"fmt"

	"animehub/app/config"
	"animehub/app/logger"
	"animehub/app/repositories"
	"animehub/app/repositories/postgres"
	"animehub/app/repositories/supabase"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Stores holds the repositories of the configured backend.
type Stores struct {
	Users   repositories.UserRepository
	Posts   repositories.PostRepository
	closers []func()
}

// Close releases the backend's connections.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenStores connects to the backend named by cfg.Store.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Store {
	case config.StoreBadger:
		db, err := repositories.OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		logger.Log.Info("Using embedded store", zap.String("path", cfg.BadgerPath))
		return badgerStores(db), nil

	case config.StoreMemory:
		db, err := repositories.OpenInMemory()
		if err != nil {
			return nil, fmt.Errorf("open in-memory store: %w", err)
		}
		logger.Log.Info("Using in-memory store")
		return badgerStores(db), nil

	case config.StoreSupabase:
		client := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseKey)
		logger.Log.Info("Using hosted store", zap.String("url", cfg.SupabaseURL))
		return &Stores{
			Users: supabase.NewUserRepository(client),
			Posts: supabase.NewPostRepository(client),
		}, nil

	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Log.Info("Using postgres store")
		return &Stores{
			Users:   postgres.NewUserRepository(pool),
			Posts:   postgres.NewPostRepository(pool),
			closers: []func(){pool.Close},
		}, nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

func badgerStores(db *badger.DB) *Stores {
	return &Stores{
		Users: repositories.NewBadgerUserRepository(db),
		Posts: repositories.NewBadgerPostRepository(db),
		closers: []func(){func() {
			if err := db.Close(); err != nil {
				logger.Log.Error("Failed to close badger", zap.Error(err))
			}
		}},
	}
}
