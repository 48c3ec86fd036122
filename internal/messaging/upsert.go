package messaging

import (
	"context"
	"log/slog"
)

// UpsertResult reports which message ended up holding the content.
type UpsertResult struct {
	MessageID string
	Posted    bool // true when a new message replaced the old one
}

// Upsert edits messageID in place, or posts a new message when there is no
// ID or the edit fails. Only a failed send is returned as an error.
func Upsert(ctx context.Context, m Messenger, logger *slog.Logger, channelID, messageID string, msg Message) (UpsertResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if messageID != "" {
		err := m.EditMessage(ctx, channelID, messageID, msg)
		if err == nil {
			return UpsertResult{MessageID: messageID}, nil
		}
		logger.WarnContext(ctx, "could not edit message, posting a new one",
			"channel_id", channelID,
			"message_id", messageID,
			"error", err,
		)
	}

	id, err := m.SendMessage(ctx, channelID, msg)
	if err != nil {
		return UpsertResult{MessageID: messageID}, err
	}
	return UpsertResult{MessageID: id, Posted: true}, nil
}
