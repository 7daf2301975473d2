package testsupport

import (
	"context"
	"testing"
	"time"

	"hlsladder/internal/config"
	"hlsladder/internal/ledger"
)

// MustOpenLedger opens a ledger.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// BeginRun inserts a running run for tests.
func BeginRun(t testing.TB, store *ledger.Store, id, course, lesson string, started time.Time) {
	t.Helper()

	if err := store.BeginRun(context.Background(), ledger.Run{ID: id, Course: course, Lesson: lesson, StartedAt: started}); err != nil {
		t.Fatalf("store.BeginRun: %v", err)
	}
}
