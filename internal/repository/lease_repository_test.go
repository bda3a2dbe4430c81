package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"growell/internal/model"
)

func newTestLeases(t *testing.T, now *time.Time) *LeaseRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("NewDB() error: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo := NewLeaseRepository(db)
	repo.now = func() time.Time { return *now }
	return repo
}

func TestLeaseExcludesSecondHolder(t *testing.T) {
	now := time.Date(2026, 1, 13, 10, 0, 0, 0, time.UTC)
	repo := newTestLeases(t, &now)
	ctx := context.Background()
	ttl := time.Minute

	serve := model.Lease{Name: "writer", Holder: "a", Role: "serve", PID: 10}
	mcp := model.Lease{Name: "writer", Holder: "b", Role: "mcp", PID: 20}

	if err := repo.Acquire(ctx, serve, ttl); err != nil {
		t.Fatalf("Acquire(serve) error: %v", err)
	}
	err := repo.Acquire(ctx, mcp, ttl)
	if !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("Acquire(mcp) error = %v, want ErrLeaseHeld", err)
	}
	if !strings.Contains(err.Error(), "serve (pid 10)") {
		t.Errorf("error %q does not name the holder", err)
	}

	// Renewal by the holder pushes the expiry forward.
	now = now.Add(50 * time.Second)
	if err := repo.Acquire(ctx, serve, ttl); err != nil {
		t.Fatalf("renew error: %v", err)
	}
	now = now.Add(30 * time.Second)
	if err := repo.Acquire(ctx, mcp, ttl); !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("Acquire(mcp) after renew = %v, want ErrLeaseHeld", err)
	}

	// Releasing someone else's lease does nothing.
	if err := repo.Release(ctx, "writer", "b"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Acquire(ctx, mcp, ttl); !errors.Is(err, ErrLeaseHeld) {
		t.Fatalf("Acquire(mcp) after foreign release = %v, want ErrLeaseHeld", err)
	}

	if err := repo.Release(ctx, "writer", "a"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Acquire(ctx, mcp, ttl); err != nil {
		t.Fatalf("Acquire(mcp) after release error: %v", err)
	}
}

func TestLeaseExpires(t *testing.T) {
	now := time.Date(2026, 1, 13, 10, 0, 0, 0, time.UTC)
	repo := newTestLeases(t, &now)
	ctx := context.Background()

	if err := repo.Acquire(ctx, model.Lease{Name: "writer", Holder: "a", Role: "serve"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Minute)
	if err := repo.Acquire(ctx, model.Lease{Name: "writer", Holder: "b", Role: "mcp"}, time.Minute); err != nil {
		t.Fatalf("Acquire() of expired lease error: %v", err)
	}
	if err := repo.Acquire(ctx, model.Lease{Name: "writer", Holder: "a", Role: "serve"}, time.Minute); !errors.Is(err, ErrLeaseHeld) {
		t.Errorf("old holder renew = %v, want ErrLeaseHeld", err)
	}
}
