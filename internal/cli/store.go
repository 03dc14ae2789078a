package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/tenken/internal/config"
	"github.com/julianstephens/tenken/internal/keyring"
	"github.com/julianstephens/tenken/internal/logger"
	"github.com/julianstephens/tenken/internal/recordstore"
	"github.com/julianstephens/tenken/internal/recordstore/aztables"
	"github.com/julianstephens/tenken/internal/recordstore/memory"
	"github.com/julianstephens/tenken/internal/recordstore/postgres"
	"github.com/julianstephens/tenken/internal/recordstore/rediscache"
	"github.com/julianstephens/tenken/internal/recordstore/sqlite"
)

// Credentials resolves the connection string of a networked store: the
// environment first, then the OS keyring. Postgres falls back to the
// configured URI, which must not carry a password.
func Credentials(target config.StoreTarget) (string, error) {
	switch target.Kind {
	case config.StorePostgres:
		if v := strings.TrimSpace(os.Getenv(config.EnvDBConnection)); v != "" {
			return v, nil
		}
		if v, err := keyring.GetConnectionString(config.StorePostgres); err == nil {
			return v, nil
		} else if !errors.Is(err, keyring.ErrNotFound) {
			logger.Debug("Keyring lookup failed", "error", err)
		}
		if err := postgres.ValidateConnString(target.Target); err != nil {
			return "", err
		}
		return target.Target, nil
	case config.StoreAzure:
		if v := strings.TrimSpace(os.Getenv(config.EnvAzureConnectionString)); v != "" {
			return v, nil
		}
		v, err := keyring.GetConnectionString(config.StoreAzure)
		if err != nil {
			return "", fmt.Errorf("no Azure Tables connection string: set %s or run 'tenken keyring set --azure': %w",
				config.EnvAzureConnectionString, err)
		}
		return v, nil
	default:
		return "", nil
	}
}

// OpenStore connects the backend named by target and, when a Redis address
// is configured, puts the read-through cache in front of it.
func OpenStore(ctx context.Context, cfg *config.Config, target config.StoreTarget) (recordstore.Store, error) {
	base, err := openBase(ctx, target)
	if err != nil {
		return nil, err
	}
	logger.Debug("Record store opened", "kind", target.Kind)

	if cfg.Redis.Addr == "" {
		return base, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unavailable, running without cache", "addr", cfg.Redis.Addr, "error", err)
		_ = client.Close()
		return base, nil
	}
	return rediscache.New(base, client, cfg.Redis.TTL), nil
}

func openBase(ctx context.Context, target config.StoreTarget) (recordstore.Store, error) {
	switch target.Kind {
	case config.StoreSQLite:
		s, err := sqlite.Open(ctx, target.Target)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorePostgres:
		connStr, err := Credentials(target)
		if err != nil {
			return nil, err
		}
		s, err := postgres.Open(ctx, connStr)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreAzure:
		connStr, err := Credentials(target)
		if err != nil {
			return nil, err
		}
		s, err := aztables.Open(ctx, connStr, target.Target)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StoreMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported store kind: %q", target.Kind)
	}
}
