package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/steamsync/internal/config"
	"github.com/JonMunkholm/steamsync/internal/core"
	"github.com/JonMunkholm/steamsync/internal/logging"
	"github.com/JonMunkholm/steamsync/internal/steam"
)

// app holds everything a run needs. close releases it in reverse order.
type app struct {
	cfg     *config.Config
	pool    *pgxpool.Pool
	service *core.Service
	logs    io.Closer
}

// bootstrap loads configuration, sets up logging, connects to the database,
// and builds the sync service.
func bootstrap(ctx context.Context) (*app, error) {
	// Overload overwrites existing env vars with the .env values.
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logs: logging.Setup(cfg.Logging)}
	slog.Info("configuration loaded", "config", cfg.String())

	entities, err := config.LoadEntities(cfg.Sync.EntitiesFile)
	if err != nil {
		a.close()
		return nil, err
	}
	slog.Info("entities loaded",
		"path", cfg.Sync.EntitiesFile,
		"sold_packages", len(entities.SoldPackages),
		"wishlist_apps", len(entities.WishlistApps),
		"follower_apps", len(entities.FollowerApps),
	)

	pool, err := connect(ctx, cfg.Database)
	if err != nil {
		a.close()
		return nil, err
	}
	a.pool = pool

	client, err := steam.NewClient(steam.ClientOptions{
		PartnerURL:   cfg.Steam.PartnerURL,
		CommunityURL: cfg.Steam.CommunityURL,
		UserAgent:    cfg.Steam.UserAgent,
		Timeout:      cfg.Steam.HTTPTimeout,
	})
	if err != nil {
		a.close()
		return nil, err
	}

	a.service = core.NewService(core.NewPoolStore(pool), client, entities, core.Options{
		CookieFormat:  cfg.Steam.CookieFormat,
		RetentionDays: cfg.Sync.RetentionDays,
	})
	slog.Info("tables registered", "count", core.TableCount())
	return a, nil
}

// connect opens and pings the pool.
func connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}

// schedulerConfig maps the sync settings onto the scheduler.
func (a *app) schedulerConfig() (core.SchedulerConfig, error) {
	at, err := a.cfg.Sync.DailyOffset()
	if err != nil {
		return core.SchedulerConfig{}, err
	}
	cfg := core.SchedulerConfig{
		DailyAt:    at,
		Interval:   a.cfg.Sync.Interval,
		RunOnStart: a.cfg.Sync.RunOnStart,
	}
	return cfg, cfg.Validate()
}
