// Package redisstore persists each state record under its own Redis key.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/campusbot/internal/state"
)

// DefaultPrefix namespaces the record keys.
const DefaultPrefix = "campusbot:state"

// Store keeps records at {prefix}:{record}.
type Store struct {
	client *redis.Client
	prefix string
}

// New creates a store. An empty prefix selects DefaultPrefix.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// Open parses a redis:// URL and returns a store on a new client.
func Open(url, prefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(redis.NewClient(opts), prefix), nil
}

func (s *Store) key(record string) string {
	return s.prefix + ":" + record
}

// Ping checks the server.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Read(ctx context.Context) (state.PersistentState, error) {
	keys := make([]string, len(state.RecordNames))
	for i, name := range state.RecordNames {
		keys[i] = s.key(name)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return state.PersistentState{}, fmt.Errorf("load state records: %w", err)
	}

	records := make(map[string][]byte, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // missing key
		}
		records[state.RecordNames[i]] = []byte(str)
	}
	return state.JoinRecords(records)
}

// Write stores every record in one MULTI/EXEC block.
func (s *Store) Write(ctx context.Context, st state.PersistentState) error {
	records, err := state.SplitRecords(st)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, name := range state.RecordNames {
			payload, ok := records[name]
			if !ok {
				pipe.Del(ctx, s.key(name))
				continue
			}
			pipe.Set(ctx, s.key(name), payload, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save state records: %w", err)
	}
	return nil
}

var _ state.Store = (*Store)(nil)
