package history

import (
	"context"
	"fmt"
	"time"

	"crossquery/internal/common/config"
	"crossquery/internal/common/database"
)

// Open builds the store selected by cfg.History.Backend. The returned close
// function releases the underlying connection.
func Open(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.History.Backend {
	case config.HistoryBackendRedis:
		client := database.NewRedis(cfg.Database.Redis)
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, noop, err
		}
		ttl := time.Duration(cfg.History.TTL) * time.Second
		return NewRedisStore(client.Client, ttl, cfg.History.MaxRuns), client.Close, nil

	case config.HistoryBackendPostgres:
		client, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, noop, err
		}
		store := NewPostgresStore(client.DB, cfg.History.MaxRuns)
		if err := store.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, noop, err
		}
		return store, client.Close, nil

	case config.HistoryBackendNone, "":
		return NopStore{}, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}
