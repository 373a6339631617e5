package commands

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sigeduc-scraper/internal/config"
	"sigeduc-scraper/internal/db"
	"sigeduc-scraper/internal/store"
	"sigeduc-scraper/lib/navigator"
	"sigeduc-scraper/lib/navigator/httpnav"
	"sigeduc-scraper/lib/navigator/rodnav"
	"sigeduc-scraper/lib/telemetry"
)

func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	database, dialect, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	err = db.Migrate(ctx, database, dialect)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	slog.Debug("opened database", "driver", cfg.Database.Driver, "dialect", dialect)
	return database, nil
}

func openStore(ctx context.Context, cfg config.Config, tel telemetry.API) (store.Store, error) {
	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return store.Store{}, err
	}
	return store.NewStore(database, tel), nil
}

func newEngine(ctx context.Context, cfg config.Config, tel telemetry.API) (navigator.Engine, error) {
	switch cfg.Browser.Engine {
	case config.ENGINE_ROD:
		engine, err := rodnav.NewEngine(ctx, rodnav.Options{
			RemoteUrl:         cfg.Browser.RemoteUrl,
			Headless:          !cfg.Browser.ShowWindow,
			NavigationTimeout: cfg.Timeouts.NavigationTimeout(),
		}, tel)
		if err != nil {
			return nil, err
		}
		return engine, nil
	case config.ENGINE_HTTP:
		engine, err := httpnav.NewEngine(httpnav.Options{
			BaseUrl:           cfg.Portal.BaseUrl,
			RequestTimeout:    cfg.Timeouts.NavigationTimeout(),
			RequestsPerSecond: cfg.Browser.RequestsPerSecond,
			UserAgent:         cfg.Browser.UserAgent,
			BypassCloudflare:  cfg.Browser.BypassCloudflare,
		}, tel)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
	return nil, fmt.Errorf("unknown engine '%s'", cfg.Browser.Engine)
}
