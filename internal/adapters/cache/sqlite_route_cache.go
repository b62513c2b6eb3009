package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"route-deviation-service/internal/domain"
)

// SQLite backed cache for provider routes. Keys are expected to be
// normalized by the caller (see routing.CacheKey).
type SqliteRouteCache struct {
	DB *sql.DB
}

func NewSqliteRouteCache(db *sql.DB) *SqliteRouteCache {
	return &SqliteRouteCache{DB: db}
}

func (s *SqliteRouteCache) Get(ctx context.Context, key string) (domain.Route, bool, error) {
	if s.DB == nil {
		return domain.Route{}, false, errors.New("route cache: db is nil")
	}
	if err := checkKey(key); err != nil {
		return domain.Route{}, false, err
	}

	var payload string
	err := s.DB.QueryRowContext(ctx, `
	SELECT payload
	FROM route_cache
	WHERE cache_key = ?;
	`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Route{}, false, nil
	}
	if err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	r, err := decodeRoute(payload)
	if err != nil {
		return domain.Route{}, false, fmt.Errorf("get route cache key=%q: %w", key, err)
	}
	return r, true, nil
}

func (s *SqliteRouteCache) Put(ctx context.Context, key string, route domain.Route) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}
	if err := checkKey(key); err != nil {
		return err
	}

	payload, err := encodeRoute(route)
	if err != nil {
		return fmt.Errorf("insert route cache: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT OR REPLACE INTO route_cache (
		cache_key,
		payload
	)
	VALUES (?, ?);
	`, key, payload)
	if err != nil {
		return fmt.Errorf("insert route cache key=%q: %w", key, err)
	}

	return nil
}
