package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/campusbot/adapter/cli"
	"github.com/felixgeelhaar/campusbot/adapter/cli/announcements"
	"github.com/felixgeelhaar/campusbot/adapter/cli/schedule"
	cliState "github.com/felixgeelhaar/campusbot/adapter/cli/state"
	"github.com/felixgeelhaar/campusbot/internal/app"
	"github.com/felixgeelhaar/campusbot/pkg/config"
	"github.com/felixgeelhaar/campusbot/pkg/observability"
)

func main() {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfigFrom(cfg.AppEnv, cfg.LogLevel, cfg.LogFormat, cli.Version))
	slog.SetDefault(logger)
	cli.SetLogger(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	var announcementsService cli.AnnouncementsService
	if container.AnnouncementsWatcher != nil {
		announcementsService = container.AnnouncementsWatcher
	}
	cli.SetApp(cli.NewApp(
		container.ScheduleWatcher,
		announcementsService,
		container.State.Store,
		container.Formatter,
		container.Health,
	))

	// Register commands
	cli.AddCommand(schedule.Cmd)
	cli.AddCommand(announcements.Cmd)
	cli.AddCommand(cliState.Cmd)

	// Execute CLI
	cli.Execute(ctx)
}
