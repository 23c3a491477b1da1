package main

import (
	"context"
	"errors"
	"fmt"

	"binops/internal/client"
	"binops/internal/config"
	"binops/internal/controller"
	"binops/internal/logging"
	"binops/internal/store"

	"go.uber.org/zap"
)

// app bundles everything a command needs.
type app struct {
	cfg   *config.Config
	store *store.Store
	api   *client.Client
	auth  *controller.Auth
	fleet *controller.Fleet
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	if log == nil {
		log = zap.NewNop()
	}
	storeLog := logging.For(log, logging.CategoryStore)
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		storeLog.Error("could not open database", zap.String("path", cfg.Storage.DatabasePath), zap.Error(err))
		return nil, err
	}
	storeLog.Debug("database opened", zap.String("path", cfg.Storage.DatabasePath))
	api, err := client.New(cfg.API.BaseURL,
		client.WithTimeout(cfg.GetAPITimeout()),
		client.WithLogger(logging.For(log, logging.CategoryAPI)),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	sessions := controller.NewSessions(st, api.BaseURL(), cfg.GetSessionTTL())
	return &app{
		cfg:   cfg,
		store: st,
		api:   api,
		auth:  controller.NewAuth(api, sessions, st, log),
		fleet: controller.NewFleet(api, sessions, st, log),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// openApp loads config and wires the app for a one-shot command.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(cfg, logger)
}

// withApp runs fn with a wired app and a context bounded by --timeout.
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return fn(ctx, a)
}

// describeError turns controller errors into a one-line hint for the user.
func describeError(err error) string {
	switch {
	case errors.Is(err, controller.ErrNoSession):
		return "Error: not logged in. Run 'bins login --email <address>' first."
	case errors.Is(err, controller.ErrSessionInvalid):
		return "Error: your session is no longer valid. Run 'bins login' again."
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Sprintf("Error: the server did not answer within %s.", timeout)
	default:
		return "Error: " + err.Error()
	}
}
