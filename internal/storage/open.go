package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/dryerlog/internal/config"
)

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case config.BackendFile, "":
		b, err = NewFile(cfg.Dir)
	case config.BackendSQLite:
		b, err = OpenSQLite(ctx, cfg.SQLitePath)
	case config.BackendPostgres:
		b, err = OpenPostgres(ctx, cfg.DatabaseURL, PostgresOptions{
			MaxConns: int32(cfg.MaxConns),
			MinConns: int32(cfg.MinConns),
		})
	case config.BackendRedis:
		b, err = OpenRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case config.BackendMemory:
		b = NewMemory()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Backend, err)
	}
	slog.Info("storage opened", "backend", cfg.Backend)
	return b, nil
}
