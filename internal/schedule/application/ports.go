// Package application runs the schedule watcher cycle.
package application

import (
	"context"

	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
)

// FetchOptions selects which week to fetch.
type FetchOptions struct {
	// WeekOffset is relative to the current week; 1 is next week.
	WeekOffset int
}

// Fetcher scrapes schedule entries from the portal. It returns an error
// wrapping domain.ErrServiceUnavailable when the portal reports an outage.
type Fetcher interface {
	FetchSchedule(ctx context.Context, opts FetchOptions) ([]domain.Entry, error)
}
