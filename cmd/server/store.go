package main

import (
	"context"
	"fmt"
	"time"

	"github.com/andrew/scoutchat/internal/config"
	"github.com/andrew/scoutchat/internal/database"
	"github.com/andrew/scoutchat/internal/ledger"
)

// openStore builds the configured ledger store. db is non-nil only for
// sqlite storage, which also keeps per-request history.
func openStore(ctx context.Context, cfg *config.Config) (store ledger.Store, db *database.DB, err error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch cfg.Storage.Type {
	case config.StorageMemory:
		return ledger.NewMemoryStore(), nil, nil

	case config.StorageFile:
		store, err := ledger.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case config.StorageSQLite:
		db, err := database.New(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return database.NewLedgerStore(db), db, nil

	case config.StorageRedis:
		store, err := ledger.NewRedisStore(ctx, ledger.RedisConfig{
			URL:    cfg.Storage.Redis.URL,
			Prefix: cfg.Storage.Redis.Prefix,
			// idle identities would be reset on their next request anyway
			TTL: 2 * cfg.Ledger.Window,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil

	case config.StoragePostgreSQL:
		store, err := ledger.NewPostgreSQLStore(ctx, ledger.PostgreSQLConfig{
			URL:      cfg.Storage.Postgres.URL,
			MaxConns: cfg.Storage.Postgres.MaxConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}

	return nil, nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
}
