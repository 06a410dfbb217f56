package store

import (
	"context"
	"fmt"
	"time"

	"github.com/andresmejia3/samaritan/internal/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store manages the PostgreSQL connection used for the sightings journal.
type Store struct {
	conn  *pgx.Conn
	runID uuid.UUID
}

// Sighting is one resolved face recorded on a sampled frame.
type Sighting struct {
	ID       int64
	RunID    uuid.UUID
	SeenAt   time.Time
	Frame    int
	Label    string
	Role     string
	Location []int // [top, right, bottom, left] in full-resolution pixels
}

// New establishes a connection to the database and ensures the schema is initialized.
// Every Store gets a fresh run id that tags the rows it records.
func New(ctx context.Context, connString string) (*Store, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &Store{conn: conn, runID: uuid.New()}, nil
}

// initSchema creates the sightings table if it doesn't exist (Auto-Migration).
func initSchema(ctx context.Context, conn *pgx.Conn) error {
	query := `
		CREATE TABLE IF NOT EXISTS sightings (
			id BIGSERIAL PRIMARY KEY,
			run_id UUID NOT NULL,
			seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			frame_index INT NOT NULL,
			label TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT '',
			location INT[] NOT NULL
		);
		CREATE INDEX IF NOT EXISTS sightings_run_id_idx ON sightings (run_id);
	`
	_, err := conn.Exec(ctx, query)
	return err
}

// Close terminates the database connection.
func (s *Store) Close(ctx context.Context) {
	s.conn.Close(ctx)
}

// RunID identifies the rows written through this Store.
func (s *Store) RunID() uuid.UUID { return s.runID }

// Record writes one row per annotation of a sampled frame in a single batch.
func (s *Store) Record(ctx context.Context, frame int, anns []types.ResolvedAnnotation) error {
	if len(anns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range anns {
		batch.Queue(`
			INSERT INTO sightings (run_id, frame_index, label, role, location)
			VALUES ($1, $2, $3, $4, $5)
		`, s.runID, frame, a.Label, string(a.Role), a.Box.Loc())
	}
	if err := s.conn.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("record frame %d: %w", frame, err)
	}
	return nil
}

// ListSightings returns the most recent rows, newest first.
func (s *Store) ListSightings(ctx context.Context, limit int) ([]Sighting, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, run_id, seen_at, frame_index, label, role, location
		FROM sightings
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Sighting
	for rows.Next() {
		var (
			sg  Sighting
			loc []int32
		)
		if err := rows.Scan(&sg.ID, &sg.RunID, &sg.SeenAt, &sg.Frame, &sg.Label, &sg.Role, &loc); err != nil {
			return nil, err
		}
		sg.Location = make([]int, len(loc))
		for i, v := range loc {
			sg.Location[i] = int(v)
		}
		out = append(out, sg)
	}
	return out, rows.Err()
}

// Reset drops all application tables to clear the database state.
// This is useful for development to force a schema refresh without migrations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS sightings CASCADE;`)
	return err
}
