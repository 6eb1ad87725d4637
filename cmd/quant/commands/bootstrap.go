package commands

import (
	"fmt"
	"time"

	"github.com/minqi/bottomfisher/internal/marketdata"
	"github.com/minqi/bottomfisher/internal/strategy"
	"github.com/minqi/bottomfisher/pkg/config"
	"github.com/minqi/bottomfisher/pkg/database"
	"github.com/minqi/bottomfisher/pkg/logger"
	"github.com/minqi/bottomfisher/pkg/redis"
)

// appContext bundles the shared wiring every command needs
type appContext struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	provider *marketdata.Provider
}

// bootstrap loads config, opens the database and builds the price provider
func bootstrap() (*appContext, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	var cache *redis.Cache
	if cfg.Redis.Enabled {
		client, err := redis.New(cfg)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, running without cache")
		} else {
			cache = redis.NewCache(client, "bottomfisher")
		}
	}

	return &appContext{
		cfg:      cfg,
		log:      log,
		db:       db,
		provider: marketdata.NewProvider(db.Pool, cache, log),
	}, nil
}

// Close releases the bootstrap resources
func (a *appContext) Close() {
	a.db.Close()
}

// loadStrategy resolves a --strategy flag, falling back to the built-in
// parameters when no file is given
func loadStrategy(path string, log *logger.Logger) (*strategy.Config, error) {
	if path == "" {
		return strategy.Default(), nil
	}

	cfg, err := strategy.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}

	if hash, err := strategy.Hash(cfg); err == nil {
		log.WithFields(map[string]interface{}{
			"strategy_id": cfg.Meta.StrategyID,
			"hash":        hash[:12],
		}).Info("Strategy loaded")
	}

	return cfg, nil
}

// parseDateFlag parses a --date style YYYY-MM-DD flag, defaulting to today
func parseDateFlag(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}

	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", raw)
	}
	return date, nil
}
