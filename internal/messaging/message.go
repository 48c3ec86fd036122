// Package messaging models chat messages and the port used to publish them.
package messaging

import (
	"context"
	"errors"
	"fmt"
)

// Embed colours used by the watchers.
const (
	ColorSchedule     = 0x3b82f6
	ColorDegraded     = 0xf59e0b
	ColorChanges      = 0x0066ff
	ColorAnnouncement = 0xff9900
)

// Message is an outgoing message. The JSON shape matches the Discord API.
type Message struct {
	Content         string           `json:"content"`
	Embeds          []Embed          `json:"embeds,omitempty"`
	AllowedMentions *AllowedMentions `json:"allowed_mentions,omitempty"`
}

// Embed is a rich message block.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
}

// EmbedFooter is the small text under an embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

// EmbedField is a named section of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// AllowedMentions restricts which mentions in the content ping anyone.
// An empty Parse list suppresses every mention.
type AllowedMentions struct {
	Parse []string `json:"parse"`
}

// NoMentions returns an AllowedMentions that suppresses all pings.
func NoMentions() *AllowedMentions {
	return &AllowedMentions{Parse: []string{}}
}

// Channel is the subset of channel metadata the watchers need.
type Channel struct {
	ID        string
	Name      string
	TextBased bool
}

// Messenger publishes messages to channels.
type Messenger interface {
	FetchChannel(ctx context.Context, channelID string) (*Channel, error)
	SendMessage(ctx context.Context, channelID string, msg Message) (string, error)
	EditMessage(ctx context.Context, channelID, messageID string, msg Message) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}

var (
	// ErrNotFound is returned when a channel or message does not exist.
	ErrNotFound = errors.New("messaging: not found")
	// ErrNotTextChannel is returned when a channel cannot hold messages.
	ErrNotTextChannel = errors.New("messaging: channel is not text based")
)

// APIError is a non-2xx response from the messaging backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("messaging api error: status %d: %s", e.StatusCode, e.Body)
}
