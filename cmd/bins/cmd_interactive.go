package main

import (
	"context"

	"binops/cmd/bins/ui"
	"binops/internal/config"
	"binops/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// runDashboard starts the terminal UI. It logs only to the configured file
// because the screen belongs to bubbletea.
func runDashboard() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err = logging.New(logging.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		File:    cfg.Logging.File,
		Verbose: verbose,
		Quiet:   true,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	m := ui.New(ui.Options{
		Auth:            a.auth,
		Fleet:           a.fleet,
		Logger:          logger,
		RefreshInterval: cfg.GetRefreshInterval(),
		RequestTimeout:  timeout,
		Theme:           cfg.UI.Theme,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchConfig(ctx, p)

	_, err = p.Run()
	return err
}

// watchConfig forwards config file edits to the running dashboard.
func watchConfig(ctx context.Context, p *tea.Program) {
	log := logging.For(logger, logging.CategoryBoot)
	err := config.Watch(ctx, resolvedConfigPath(), func(cfg *config.Config) {
		p.Send(ui.ConfigChangedMsg{
			RefreshInterval: cfg.GetRefreshInterval(),
			Theme:           cfg.UI.Theme,
		})
	}, func(err error) {
		log.Warn("config reload failed", zap.Error(err))
	})
	if err != nil {
		log.Warn("config watch disabled", zap.Error(err))
	}
}
