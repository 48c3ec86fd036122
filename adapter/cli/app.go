package cli

import (
	"context"

	announcementsApp "github.com/felixgeelhaar/campusbot/internal/announcements/application"
	scheduleApp "github.com/felixgeelhaar/campusbot/internal/schedule/application"
	scheduleDomain "github.com/felixgeelhaar/campusbot/internal/schedule/domain"
	"github.com/felixgeelhaar/campusbot/internal/schedule/render"
	"github.com/felixgeelhaar/campusbot/internal/state"
	"github.com/felixgeelhaar/campusbot/pkg/observability"
)

// ScheduleService is the part of the schedule watcher the CLI drives.
type ScheduleService interface {
	Run(ctx context.Context) error
	ClearChangeMessage(ctx context.Context) (scheduleApp.ClearOutcome, error)
	Snapshot(ctx context.Context) (scheduleDomain.ScheduleState, error)
}

// AnnouncementsService is the part of the announcements watcher the CLI drives.
type AnnouncementsService interface {
	Check(ctx context.Context) (announcementsApp.CheckResult, error)
}

// App holds the CLI application dependencies.
type App struct {
	Schedule      ScheduleService
	Announcements AnnouncementsService
	Store         state.Store
	Formatter     *render.Formatter
	Health        *observability.HealthRegistry
}

// NewApp creates a new CLI application. announcements may be nil when
// that watcher is disabled.
func NewApp(
	schedule ScheduleService,
	announcements AnnouncementsService,
	store state.Store,
	formatter *render.Formatter,
	health *observability.HealthRegistry,
) *App {
	return &App{
		Schedule:      schedule,
		Announcements: announcements,
		Store:         store,
		Formatter:     formatter,
		Health:        health,
	}
}

var app *App

// SetApp sets the global app instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global app instance.
func GetApp() *App {
	return app
}
