package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"route-deviation-service/internal/domain"
	"route-deviation-service/internal/platform/obs"
)

// SQLRouteCache is a Postgres-backed cache of provider routes.
type SQLRouteCache struct {
	DB *sql.DB
}

func NewSQLRouteCache(db *sql.DB) *SQLRouteCache {
	return &SQLRouteCache{DB: db}
}

func (s *SQLRouteCache) Get(ctx context.Context, key string) (_ domain.Route, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.sql.Get")(&err)

	if s.DB == nil {
		return domain.Route{}, false, errors.New("route cache: db is nil")
	}
	if err := checkKey(key); err != nil {
		return domain.Route{}, false, err
	}

	var payload string
	err = s.DB.QueryRowContext(ctx, `
	SELECT payload
	FROM route_cache
	WHERE cache_key = $1;
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

func (s *SQLRouteCache) Put(ctx context.Context, key string, route domain.Route) (err error) {
	defer obs.Time(ctx, "route.cache.sql.Put")(&err)

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
	INSERT INTO route_cache (cache_key, payload)
	VALUES ($1, $2)
	ON CONFLICT (cache_key) DO UPDATE
	SET payload = EXCLUDED.payload,
		created_at = CURRENT_TIMESTAMP;
	`, key, payload)
	if err != nil {
		return fmt.Errorf("insert route cache key=%q: %w", key, err)
	}

	return nil
}

// Prune deletes entries stored before cutoff and returns how many were removed.
// The cutoff is sent in UTC, which is what SQLite's CURRENT_TIMESTAMP writes.
func (s *SQLRouteCache) Prune(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	defer obs.Time(ctx, "route.cache.sql.Prune")(&err)

	if s.DB == nil {
		return 0, errors.New("route cache: db is nil")
	}

	res, err := s.DB.ExecContext(ctx, `
	DELETE FROM route_cache
	WHERE created_at < $1;
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune route cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune route cache: rows affected: %w", err)
	}
	return n, nil
}
