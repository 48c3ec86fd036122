package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/campusbot/internal/schedule/domain"
	"github.com/felixgeelhaar/campusbot/internal/state"
)

// ClearOutcome describes what ClearChangeMessage did.
type ClearOutcome int

const (
	// ClearRemoved means the change message ID was cleared.
	ClearRemoved ClearOutcome = iota
	// ClearNothing means no change message was recorded.
	ClearNothing
	// ClearNoChannel means the schedule channel could not be resolved.
	ClearNoChannel
)

// ClearChangeMessage deletes the change notification and forgets its ID.
// A failed delete is logged; the ID is cleared regardless.
func (w *Watcher) ClearChangeMessage(ctx context.Context) (ClearOutcome, error) {
	outcome := ClearNothing
	err := w.guard.Do(ctx, func(ctx context.Context, store state.Store) error {
		st, err := store.Read(ctx)
		if err != nil {
			return fmt.Errorf("read state: %w", err)
		}

		messageID := st.Schedule.ChangeMessageID
		if messageID == "" {
			outcome = ClearNothing
			return nil
		}

		channel, err := w.messenger.FetchChannel(ctx, w.config.ChannelID)
		if err != nil || channel == nil || !channel.TextBased {
			outcome = ClearNoChannel
			return nil
		}

		if err := w.messenger.DeleteMessage(ctx, channel.ID, messageID); err != nil {
			w.logger.WarnContext(ctx, "failed to delete schedule change message",
				"message_id", messageID,
				"error", err,
			)
		}

		st.Schedule.ChangeMessageID = ""
		if err := store.Write(ctx, st); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
		outcome = ClearRemoved
		return nil
	})
	return outcome, err
}

// Snapshot returns the persisted schedule record.
func (w *Watcher) Snapshot(ctx context.Context) (domain.ScheduleState, error) {
	var snapshot domain.ScheduleState
	err := w.guard.Do(ctx, func(ctx context.Context, store state.Store) error {
		st, err := store.Read(ctx)
		if err != nil {
			return err
		}
		snapshot = st.Schedule
		return nil
	})
	return snapshot, err
}
