package repository

import (
	"context"
	"fmt"

	"github.com/jack/shortlink-analytics/internal/config"
)

// Open connects the MappingStore selected by cfg.Store.Driver and makes sure
// its schema exists.
func Open(ctx context.Context, cfg *config.Config) (MappingStore, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		repo, err := NewPostgresRepository(&cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	case config.StoreDriverSQLite:
		repo, err := NewSQLiteRepository(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.StoreDriverMemory:
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
