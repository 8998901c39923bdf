// Package store picks the persistence backend named in the config.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"shopsim/internal/config"
	"shopsim/internal/db"
	"shopsim/internal/game"
	"shopsim/internal/store/dynamostore"
	"shopsim/internal/store/memstore"
	"shopsim/internal/store/pgstore"
)

// Open connects the configured backend. The returned close func is never nil.
func Open(ctx context.Context, cfg config.APIConfig, logger *slog.Logger) (game.Store, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DatabaseMaxConns})
		if err != nil {
			return nil, func() {}, err
		}
		s := pgstore.New(pool, logger)
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, func() {}, err
		}
		return s, pool.Close, nil
	case config.BackendDynamo:
		client, err := dynamostore.NewClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, func() {}, err
		}
		tables := dynamostore.Tables{
			Businesses: cfg.DynamoBusinessesTable,
			Orders:     cfg.DynamoOrdersTable,
			Owners:     cfg.DynamoOwnersTable,
		}
		return dynamostore.New(client, tables, logger), func() {}, nil
	case config.BackendMemory:
		logger.Warn("memory store selected, state is lost on exit")
		return memstore.New(), func() {}, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
