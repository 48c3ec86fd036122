package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/campusbot/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/campusbot/internal/shared/infrastructure/database/postgres"
	_ "github.com/felixgeelhaar/campusbot/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/campusbot/internal/shared/infrastructure/security"
	"github.com/felixgeelhaar/campusbot/internal/state"
	"github.com/felixgeelhaar/campusbot/internal/state/filestore"
	"github.com/felixgeelhaar/campusbot/internal/state/redisstore"
	"github.com/felixgeelhaar/campusbot/internal/state/sqlstore"
	"github.com/felixgeelhaar/campusbot/pkg/config"
)

// StateBackend is an opened state store with its lifecycle hooks.
type StateBackend struct {
	Name  string
	Store state.Store
	Ping  func(ctx context.Context) error
	Close func() error
}

// OpenStateBackend opens the store selected by cfg.StateBackend.
func OpenStateBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*StateBackend, error) {
	switch cfg.StateBackend {
	case config.BackendFile, "":
		path, err := security.ValidateFilePath(cfg.StatePath)
		if err != nil {
			return nil, fmt.Errorf("invalid STATE_PATH: %w", err)
		}
		store := filestore.New(nil, path, logger)
		return &StateBackend{
			Name:  config.BackendFile,
			Store: store,
			Ping: func(ctx context.Context) error {
				_, err := store.Read(ctx)
				return err
			},
			Close: func() error { return nil },
		}, nil

	case config.BackendSQLite:
		path, err := security.ValidateFilePath(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("invalid SQLITE_PATH: %w", err)
		}
		return openSQLBackend(ctx, config.BackendSQLite, database.Config{
			Driver:     database.DriverSQLite,
			SQLitePath: path,
		})

	case config.BackendPostgres:
		return openSQLBackend(ctx, config.BackendPostgres, database.Config{
			Driver:   database.DriverPostgres,
			URL:      cfg.DatabaseURL,
			MaxConns: 4,
		})

	case config.BackendRedis:
		store, err := redisstore.Open(cfg.RedisURL, redisstore.DefaultPrefix)
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return &StateBackend{
			Name:  config.BackendRedis,
			Store: store,
			Ping:  store.Ping,
			Close: store.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported state backend: %s", cfg.StateBackend)
	}
}

func openSQLBackend(ctx context.Context, name string, dbCfg database.Config) (*StateBackend, error) {
	conn, err := database.Open(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", name, err)
	}
	store, err := sqlstore.New(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &StateBackend{
		Name:  name,
		Store: store,
		Ping:  store.Ping,
		Close: conn.Close,
	}, nil
}
