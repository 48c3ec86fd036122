// Package sqlstore persists each state record as a row of state_records,
// on SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/campusbot/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/campusbot/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/campusbot/internal/state"
)

// Store reads and writes state records through a database connection.
type Store struct {
	conn database.Connection
}

// New runs the migrations and returns a store on conn.
func New(ctx context.Context, conn database.Connection) (*Store, error) {
	if err := migrations.Run(ctx, conn); err != nil {
		return nil, fmt.Errorf("migrate state schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

func (s *Store) Read(ctx context.Context) (state.PersistentState, error) {
	query := "SELECT name, payload FROM state_records"
	if s.conn.Driver() == database.DriverPostgres {
		query = "SELECT name, payload::text FROM state_records"
	}

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return state.PersistentState{}, fmt.Errorf("query state records: %w", err)
	}
	defer rows.Close()

	records := make(map[string][]byte)
	for rows.Next() {
		var name, payload string
		if err := rows.Scan(&name, &payload); err != nil {
			return state.PersistentState{}, fmt.Errorf("scan state record: %w", err)
		}
		records[name] = []byte(payload)
	}
	if err := rows.Err(); err != nil {
		return state.PersistentState{}, fmt.Errorf("iterate state records: %w", err)
	}

	return state.JoinRecords(records)
}

// Write replaces all records in one transaction.
func (s *Store) Write(ctx context.Context, st state.PersistentState) error {
	records, err := state.SplitRecords(st)
	if err != nil {
		return err
	}

	upsert := s.upsertStatement()
	remove := "DELETE FROM state_records WHERE name = " + s.conn.Driver().Placeholder(1)
	now := time.Now().UTC()

	return database.WithinTx(ctx, s.conn, func(tx database.Executor) error {
		for _, name := range state.RecordNames {
			payload, ok := records[name]
			if !ok {
				if _, err := tx.Exec(ctx, remove, name); err != nil {
					return fmt.Errorf("delete %s record: %w", name, err)
				}
				continue
			}
			if _, err := tx.Exec(ctx, upsert, name, string(payload), s.timestampArg(now)); err != nil {
				return fmt.Errorf("upsert %s record: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) upsertStatement() string {
	d := s.conn.Driver()
	payload := d.Placeholder(2)
	if d == database.DriverPostgres {
		payload += "::jsonb"
	}
	return strings.Join([]string{
		"INSERT INTO state_records (name, payload, updated_at)",
		"VALUES (" + d.Placeholder(1) + ", " + payload + ", " + d.Placeholder(3) + ")",
		"ON CONFLICT (name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at",
	}, " ")
}

func (s *Store) timestampArg(t time.Time) any {
	if s.conn.Driver() == database.DriverPostgres {
		return t
	}
	return t.Format(time.RFC3339Nano)
}

var _ state.Store = (*Store)(nil)
