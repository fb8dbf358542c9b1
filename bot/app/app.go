// Package app assembles the clan knowledge-base bot from the core
// framework pieces: storage, navigation views, conversation handlers
// and the Telegram runtime wiring.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"clanbase/bot/handlers"
	"clanbase/bot/nav"
	"clanbase/bot/storage"
	"clanbase/core/bootstrap"
	tg "clanbase/core/telegram"
	"clanbase/core/telegram/router"
	"clanbase/core/telegram/state"
)

// App is the bootstrapped bot, ready to run.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	sessions state.Manager
	registry *tg.Registry
}

// Bootstrap initializes logging, applies migrations, connects to the
// database, seeds the default sections and registers every handler.
func Bootstrap(cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	result, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
		Seeders: []bootstrap.Seeder{
			bootstrap.SeederFunc(storage.SeedDefaultSections),
		},
	})
	if err != nil {
		return nil, err
	}

	store := storage.NewStore(result.DB)
	views := nav.NewEngine(store)
	sessions := state.NewMemoryManager(
		time.Duration(cfg.Core.Session.TimeoutSeconds) * time.Second,
	)

	registry := tg.NewRegistry()
	handlers.New(store, views, sessions, cfg.Core.Telegram.IsEditor).Register(registry)

	return &App{
		cfg:      cfg,
		db:       result.DB,
		sessions: sessions,
		registry: registry,
	}, nil
}

// TelegramRunOptions exposes the routes and middleware for the runner.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(a.sessions, a.registry, router.TextOptions{})...)

	return tg.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStop: func(_ context.Context, _ tg.Runtime) error {
			return a.db.Close()
		},
	}, nil
}
