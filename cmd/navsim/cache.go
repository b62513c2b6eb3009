package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"route-deviation-service/internal/adapters/cache"
	"route-deviation-service/internal/config"
	"route-deviation-service/internal/platform/db"
	"route-deviation-service/internal/ports"
)

// openRouteCache connects the configured cache backend. The returned cache is
// nil for ROUTE_CACHE=none; the close func is always safe to call.
func openRouteCache(ctx context.Context, cfg config.CacheConfig) (ports.RouteCache, func(), error) {
	log := zerolog.Ctx(ctx)
	noop := func() {}

	switch cfg.Backend {
	case config.CacheNone, "":
		return nil, noop, nil

	case config.CacheMemory:
		return cache.NewMemoryRouteCache(), noop, nil

	case config.CacheSqlite:
		conn, err := db.OpenSqlite(cfg.DBPath)
		if err != nil {
			return nil, noop, err
		}
		if err := cache.InitSchema(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, noop, err
		}
		log.Debug().Str("path", cfg.DBPath).Msg("sqlite route cache ready")
		return cache.NewSqliteRouteCache(conn), func() { _ = conn.Close() }, nil

	case config.CachePostgres:
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		log.Debug().Msg("postgres route cache ready")
		return cache.NewSQLRouteCache(conn), func() { _ = conn.Close() }, nil

	case config.CacheRedis:
		client, err := db.ConnectRedis(ctx, db.RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err != nil {
			return nil, noop, err
		}
		log.Debug().Str("addr", cfg.RedisAddr).Msg("redis route cache ready")
		return cache.NewRedisRouteCache(client, cfg.TTL), func() { _ = client.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown route cache backend %q", cfg.Backend)
	}
}
