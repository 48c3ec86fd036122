// Package messagingtest provides an in-memory Messenger for tests.
package messagingtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/campusbot/internal/messaging"
)

// SentMessage records a SendMessage or EditMessage call.
type SentMessage struct {
	ChannelID string
	MessageID string
	Message   messaging.Message
}

// Fake is a recording Messenger. Channels must be registered before use.
type Fake struct {
	mu       sync.Mutex
	channels map[string]*messaging.Channel
	messages map[string]messaging.Message
	nextID   int

	Sent    []SentMessage
	Edited  []SentMessage
	Deleted []string

	SendErr   error
	EditErr   error
	DeleteErr error
}

// NewFake creates a fake with the given text channels registered.
func NewFake(channelIDs ...string) *Fake {
	f := &Fake{
		channels: make(map[string]*messaging.Channel),
		messages: make(map[string]messaging.Message),
	}
	for _, id := range channelIDs {
		f.AddChannel(&messaging.Channel{ID: id, Name: id, TextBased: true})
	}
	return f
}

// AddChannel registers a channel.
func (f *Fake) AddChannel(ch *messaging.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[ch.ID] = ch
}

// Seed stores an existing message so it can be edited.
func (f *Fake) Seed(messageID string, msg messaging.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[messageID] = msg
}

// Message returns the current content of a stored message.
func (f *Fake) Message(messageID string) (messaging.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[messageID]
	return msg, ok
}

func (f *Fake) FetchChannel(_ context.Context, channelID string) (*messaging.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, messaging.ErrNotFound
	}
	return ch, nil
}

func (f *Fake) SendMessage(_ context.Context, channelID string, msg messaging.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SendErr != nil {
		return "", f.SendErr
	}
	f.nextID++
	id := fmt.Sprintf("msg-%d", f.nextID)
	f.messages[id] = msg
	f.Sent = append(f.Sent, SentMessage{ChannelID: channelID, MessageID: id, Message: msg})
	return id, nil
}

func (f *Fake) EditMessage(_ context.Context, channelID, messageID string, msg messaging.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EditErr != nil {
		return f.EditErr
	}
	if _, ok := f.messages[messageID]; !ok {
		return messaging.ErrNotFound
	}
	f.messages[messageID] = msg
	f.Edited = append(f.Edited, SentMessage{ChannelID: channelID, MessageID: messageID, Message: msg})
	return nil
}

func (f *Fake) DeleteMessage(_ context.Context, _ string, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.messages[messageID]; !ok {
		return messaging.ErrNotFound
	}
	delete(f.messages, messageID)
	f.Deleted = append(f.Deleted, messageID)
	return nil
}

var _ messaging.Messenger = (*Fake)(nil)
