// Package filestore persists the state as a pretty-printed JSON file.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/felixgeelhaar/campusbot/internal/state"
)

// Store reads and writes a single JSON file.
type Store struct {
	fs     afero.Fs
	path   string
	logger *slog.Logger
}

// New creates a store for path on fs. A nil fs means the OS filesystem.
func New(fs afero.Fs, path string, logger *slog.Logger) *Store {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{fs: fs, path: path, logger: logger}
}

// Path returns the file location.
func (s *Store) Path() string { return s.path }

// Read returns the stored state. A missing or unreadable file yields the
// default state and is only logged.
func (s *Store) Read(ctx context.Context) (state.PersistentState, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.InfoContext(ctx, "state file not found, using defaults", "path", s.path)
		} else {
			s.logger.WarnContext(ctx, "could not read state file, using defaults", "path", s.path, "error", err)
		}
		return state.Default(), nil
	}

	var st state.PersistentState
	if err := json.Unmarshal(data, &st); err != nil {
		s.logger.WarnContext(ctx, "state file is not valid JSON, using defaults", "path", s.path, "error", err)
		return state.Default(), nil
	}
	return st, nil
}

// Write replaces the file, creating parent directories as needed.
func (s *Store) Write(ctx context.Context, st state.PersistentState) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	s.logger.DebugContext(ctx, "state written", "path", s.path, "bytes", len(data))
	return nil
}

var _ state.Store = (*Store)(nil)
