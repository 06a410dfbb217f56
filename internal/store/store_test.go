package store

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/andresmejia3/samaritan/internal/types"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestStoreIntegration runs a full integration test against a real Postgres container.
// It requires Docker to be running.
func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	// We wrap this in a function to recover from panics inside testcontainers (e.g. socket not found)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("testcontainers panicked: %v", r)
			}
		}()
		_, err = testcontainers.NewDockerClientWithOpts(ctx)
		return
	}()
	if err != nil {
		t.Fatalf("Docker not available, cannot run integration test: %v", err)
	}

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("samaritan_test"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
		testcontainers.WithLogger(noopLogger{}),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Fatalf("Failed to terminate container: %v", err)
		}
	}()

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	// Initialize Store (runs migrations)
	s, err := New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to store: %v", err)
	}
	defer s.Close(ctx)

	// --- Test Scenarios ---

	alice := types.ResolvedAnnotation{
		Box:   types.Box{Top: 40, Right: 200, Bottom: 160, Left: 20},
		Label: "Alice",
		Role:  types.RoleAdmin,
		Color: types.Color{56, 218, 255},
	}
	stranger := types.ResolvedAnnotation{
		Box:   types.Box{Top: 0, Right: 50, Bottom: 50, Left: 0},
		Label: types.UnknownLabel,
		Role:  types.RoleNone,
		Color: types.UnknownColor,
	}

	if err := s.Record(ctx, 5, []types.ResolvedAnnotation{alice, stranger}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.Record(ctx, 10, []types.ResolvedAnnotation{alice}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	// A frame without faces writes nothing.
	if err := s.Record(ctx, 15, nil); err != nil {
		t.Fatalf("Record of empty frame failed: %v", err)
	}

	rows, err := s.ListSightings(ctx, 10)
	if err != nil {
		t.Fatalf("ListSightings failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 sightings, got %d", len(rows))
	}

	// Newest first
	if rows[0].Frame != 10 || rows[0].Label != "Alice" || rows[0].Role != "admin" {
		t.Errorf("Unexpected newest row: %+v", rows[0])
	}
	if !reflect.DeepEqual(rows[0].Location, []int{40, 200, 160, 20}) {
		t.Errorf("Expected location [40 200 160 20], got %v", rows[0].Location)
	}
	if rows[1].Frame != 5 || rows[1].Label != types.UnknownLabel || rows[1].Role != "" {
		t.Errorf("Unexpected unknown row: %+v", rows[1])
	}
	for _, r := range rows {
		if r.RunID != s.RunID() {
			t.Errorf("Row %d has run id %s, want %s", r.ID, r.RunID, s.RunID())
		}
	}

	limited, err := s.ListSightings(ctx, 1)
	if err != nil {
		t.Fatalf("ListSightings failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected limit to return 1 row, got %d", len(limited))
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := s.ListSightings(ctx, 10); err == nil {
		t.Error("Expected query on dropped table to fail")
	}
}

type noopLogger struct{}

func (n noopLogger) Printf(format string, v ...interface{}) {}
