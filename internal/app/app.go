// Package app wires the client core together: local storage, the toast
// notifier, the HTTP gateway, the three session stores, the navigator, the
// realtime channel and the endpoint clients.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dukerupert/carpool/internal/api"
	"github.com/dukerupert/carpool/internal/config"
	"github.com/dukerupert/carpool/internal/database"
	"github.com/dukerupert/carpool/internal/gateway"
	"github.com/dukerupert/carpool/internal/metrics"
	"github.com/dukerupert/carpool/internal/model"
	"github.com/dukerupert/carpool/internal/navigator"
	"github.com/dukerupert/carpool/internal/realtime"
	"github.com/dukerupert/carpool/internal/session"
	"github.com/dukerupert/carpool/internal/store"
	"github.com/dukerupert/carpool/internal/toast"
)

// RouteKey is the storage key holding the last navigated path, so a new
// process resumes where the previous one left off.
const RouteKey = "route"

type App struct {
	Config    *config.Config
	Storage   *store.LocalStorage
	Toasts    *toast.Notifier
	Gateway   *gateway.Client
	User      *session.Store
	Admin     *session.Store
	Donor     *session.Store
	Navigator *navigator.Navigator
	Realtime  *realtime.Channel
	API       *api.Client
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry

	db     *sql.DB
	logger *slog.Logger
}

// New opens local storage and builds every component from cfg. Nothing talks
// to the network until Start or an explicit call.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := database.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	sealer, err := store.NewSealer(cfg.Storage.Passphrase)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sealer: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	a := &App{
		Config:   cfg,
		Storage:  store.NewLocalStorage(db, sealer),
		Toasts:   toast.New(logger),
		Metrics:  metrics.New(reg),
		Registry: reg,
		db:       db,
		logger:   logger,
	}

	a.Gateway = gateway.New(gateway.Options{
		BaseURL:         cfg.API.BaseURL,
		Timeout:         cfg.API.Timeout,
		RateLimit:       cfg.API.RateLimit,
		RateBurst:       cfg.API.RateBurst,
		BreakerFailures: cfg.API.BreakerFailures,
		BreakerTimeout:  cfg.API.BreakerTimeout,
		Metrics:         a.Metrics,
	}, a.Toasts, logger)

	deps := session.Deps{
		Gateway: a.Gateway,
		Storage: a.Storage,
		Toasts:  a.Toasts,
		Redirector: session.RedirectFunc(func(ctx context.Context, path string) {
			a.Navigator.Redirect(ctx, path)
		}),
		Logger: logger,
	}
	userDeps := deps
	userDeps.ReturnTo = a.returnTo
	a.User = session.NewUser(userDeps)
	a.Admin = session.NewAdmin(deps)
	a.Donor = session.NewDonor(deps)

	a.Navigator = navigator.New(
		navigator.NewTable(navigator.DefaultRoutes()),
		navigator.Sessions{User: a.User, Admin: a.Admin, Donor: a.Donor},
		logger,
	)

	a.Gateway.Bind(map[model.Audience]gateway.Session{
		model.AudienceUser:  a.User,
		model.AudienceAdmin: a.Admin,
		model.AudienceDonor: a.Donor,
	}, a.Navigator)

	a.Realtime = realtime.New(realtime.Options{
		URL:               cfg.Realtime.URL,
		MaxUpdates:        cfg.Realtime.MaxUpdates,
		ReconnectAttempts: cfg.Realtime.ReconnectAttempts,
		ReconnectBase:     cfg.Realtime.ReconnectBase,
		ReconnectMax:      cfg.Realtime.ReconnectMax,
		Metrics:           a.Metrics,
	}, a.User, logger)

	a.API = api.New(a.Gateway, a.User, logger)

	a.User.OnLogin(func(session.Snapshot) {
		if err := a.Realtime.Connect(context.Background()); err != nil {
			logger.Warn("realtime connect after login failed", "error", err)
		}
	})
	a.User.OnLogout(func(session.Snapshot) {
		a.Realtime.Disconnect()
	})

	return a, nil
}

// Start resumes the persisted route, or home when none was saved. The first
// push initializes every session from storage.
func (a *App) Start(ctx context.Context) (navigator.Location, error) {
	path := navigator.PathHome
	if saved, ok, err := a.Storage.Get(RouteKey); err != nil {
		a.logger.Warn("failed to read saved route", "error", err)
	} else if ok && saved != "" {
		path = saved
	}
	return a.Navigator.Push(ctx, path)
}

// Navigate pushes path and remembers where navigation ended.
func (a *App) Navigate(ctx context.Context, path string) (navigator.Location, error) {
	loc, err := a.Navigator.Push(ctx, path)
	if err != nil {
		return loc, err
	}
	a.saveRoute()
	return loc, nil
}

// ConnectRealtime opens the channel when the user session is authenticated.
func (a *App) ConnectRealtime(ctx context.Context) error {
	if !a.User.Authenticated() {
		return session.ErrNotAuthenticated
	}
	return a.Realtime.Connect(ctx)
}

// returnTo is the page a signed-out user was turned away from, carried on
// the login route's redirect query.
func (a *App) returnTo() string {
	loc := a.Navigator.Current()
	if loc.Path != navigator.PathLoginRegister {
		return ""
	}
	return loc.Query.Get("redirect")
}

func (a *App) saveRoute() {
	if err := a.Storage.Set(RouteKey, a.Navigator.CurrentPath()); err != nil {
		a.logger.Warn("failed to save route", "error", err)
	}
}

// Close saves the current route, disconnects realtime and closes storage.
func (a *App) Close() error {
	a.saveRoute()
	a.Realtime.Disconnect()
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
