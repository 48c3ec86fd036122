package redisstore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/campusbot/internal/state"
)

func TestStore_Keys(t *testing.T) {
	s := New(nil, "")
	assert.Equal(t, "campusbot:state:schedule", s.key(state.RecordSchedule))

	s = New(nil, "test")
	assert.Equal(t, "test:panel", s.key(state.RecordPanel))
}

func TestOpen_InvalidURL(t *testing.T) {
	_, err := Open("not a url", "")

	assert.Error(t, err)
}

// Requires a running server: REDIS_TEST_URL=redis://localhost:6379/15
func TestStore_Integration(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	ctx := context.Background()
	store, err := Open(url, "campusbot-test:"+uuid.NewString())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Ping(ctx))

	empty, err := store.Read(ctx)
	require.NoError(t, err)
	assert.True(t, empty.Schedule.IsFirstRun())

	st := state.Default()
	st.Schedule.Hash = "abc"
	st.Announcements.Seen = []string{"x"}
	require.NoError(t, store.Write(ctx, st))

	got, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Schedule.Hash)
	assert.Equal(t, []string{"x"}, got.Announcements.Seen)

	for _, name := range state.RecordNames {
		store.client.Del(ctx, store.key(name))
	}
}
