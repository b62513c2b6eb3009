package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"route-deviation-service/internal/adapters/cache"
	"route-deviation-service/internal/config"
	"route-deviation-service/internal/platform/db"
	"route-deviation-service/internal/platform/logger"
)

// dbtool prepares the Postgres route cache: it creates the schema and
// optionally prunes entries older than PRUNE_OLDER_THAN.
func main() {
	log := logger.New(logger.Options{Level: config.Get("LOG_LEVEL", "info"), Pretty: true})

	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal().Msg("DATABASE_URL is required")
	}

	conn, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	ctx := log.WithContext(context.Background())

	log.Info().Msg("Initializing route cache schema...")
	if err := cache.InitSchema(ctx, conn); err != nil {
		log.Fatal().Err(err).Msg("schema initialization failed")
	}
	log.Info().Msg("Schema ready.")

	prune := config.Get("PRUNE_OLDER_THAN", "")
	if prune == "" {
		return
	}
	if err := pruneCache(ctx, cache.NewSQLRouteCache(conn), prune, log); err != nil {
		log.Fatal().Err(err).Msg("pruning failed")
	}
}

func pruneCache(ctx context.Context, c *cache.SQLRouteCache, olderThan string, log zerolog.Logger) error {
	age, err := time.ParseDuration(olderThan)
	if err != nil {
		return err
	}

	n, err := c.Prune(ctx, time.Now().Add(-age))
	if err != nil {
		return err
	}
	log.Info().Int64("deleted", n).Str("older_than", age.String()).Msg("Route cache pruned.")
	return nil
}
