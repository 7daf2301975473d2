package ledger_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"hlsladder/internal/ledger"
	"hlsladder/internal/testsupport"
)

func TestRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()

	testsupport.BeginRun(t, store, "run-1", "c1", "l1", time.Now().Add(-time.Minute))
	run, err := store.Run(ctx, "run-1")
	if err != nil || run == nil {
		t.Fatalf("Run: %v %v", run, err)
	}
	if run.Status != ledger.RunRunning || !run.FinishedAt.IsZero() {
		t.Fatalf("unexpected new run %+v", run)
	}

	err = store.FinishRun(ctx, "run-1", ledger.Summary{
		Status:           ledger.RunPartial,
		RenditionsTotal:  2,
		UploadsAttempted: 7,
		UploadsFailed:    1,
	})
	if err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	run, _ = store.Run(ctx, "run-1")
	if run.Status != ledger.RunPartial || run.UploadsFailed != 1 || run.Duration() <= 0 {
		t.Fatalf("unexpected finished run %+v", run)
	}

	if err := store.FinishRun(ctx, "missing", ledger.Summary{Status: ledger.RunFailed}); err == nil {
		t.Fatal("expected error finishing unknown run")
	}
	if missing, err := store.Run(ctx, "missing"); err != nil || missing != nil {
		t.Fatalf("expected nil for missing run, got %v %v", missing, err)
	}
}

func TestFailedKeysTrackLatestOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	testsupport.BeginRun(t, store, "run-1", "c1", "l1", time.Now())

	err := store.RecordArtifacts(ctx, "run-1", []ledger.Artifact{
		{Key: "c1/l1/master.m3u8", Bucket: "videos", LocalPath: "/x/master.m3u8", Status: ledger.ArtifactUploaded, Bytes: 10},
		{Key: "c1/l1/low/001.ts", Bucket: "videos", LocalPath: "/x/low/001.ts", Status: ledger.ArtifactFailed, ErrorMessage: "reset"},
		{Key: "c1/l1/low/000.ts", Bucket: "videos", LocalPath: "/x/low/000.ts", Status: ledger.ArtifactFailed, ErrorMessage: "reset"},
	})
	if err != nil {
		t.Fatalf("RecordArtifacts: %v", err)
	}
	keys, err := store.FailedKeys(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, []string{"c1/l1/low/000.ts", "c1/l1/low/001.ts"}) {
		t.Fatalf("FailedKeys = %v", keys)
	}

	// A retry that lands overwrites the failure.
	err = store.RecordArtifacts(ctx, "run-1", []ledger.Artifact{
		{Key: "c1/l1/low/000.ts", Bucket: "videos", LocalPath: "/x/low/000.ts", Status: ledger.ArtifactUploaded, Bytes: 188},
	})
	if err != nil {
		t.Fatal(err)
	}
	keys, _ = store.FailedKeys(ctx, "run-1")
	if !reflect.DeepEqual(keys, []string{"c1/l1/low/001.ts"}) {
		t.Fatalf("FailedKeys after retry = %v", keys)
	}
	artifacts, _ := store.Artifacts(ctx, "run-1")
	if len(artifacts) != 3 || artifacts[0].Bytes != 188 || artifacts[0].ErrorMessage != "" {
		t.Fatalf("unexpected artifacts %+v", artifacts)
	}
}

func TestLastRunAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	testsupport.BeginRun(t, store, "old", "c1", "l1", base)
	testsupport.BeginRun(t, store, "new", "c1", "l1", base.Add(time.Hour))
	testsupport.BeginRun(t, store, "other", "c1", "l2", base.Add(2*time.Hour))

	last, err := store.LastRun(ctx, "c1", "l1")
	if err != nil || last == nil || last.ID != "new" {
		t.Fatalf("LastRun = %+v, %v", last, err)
	}
	if none, err := store.LastRun(ctx, "c9", "l9"); err != nil || none != nil {
		t.Fatalf("expected no run, got %+v %v", none, err)
	}
	runs, err := store.ListRuns(ctx, 2)
	if err != nil || len(runs) != 2 || runs[0].ID != "other" {
		t.Fatalf("ListRuns = %+v, %v", runs, err)
	}

	if err := store.FinishRun(ctx, "old", ledger.Summary{Status: ledger.RunCompleted}); err != nil {
		t.Fatal(err)
	}
	removed, err := store.PruneBefore(ctx, base.Add(30*time.Minute))
	if err != nil || removed != 1 {
		t.Fatalf("PruneBefore removed %d, %v", removed, err)
	}
}

func TestLastTranscodeSkipsPublishOnlyRuns(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	if run, err := store.LastTranscode(ctx, "c1", "l1"); err != nil || run != nil {
		t.Fatalf("expected no transcode, got %+v %v", run, err)
	}
	if err := store.BeginRun(ctx, ledger.Run{ID: "encode", Course: "c1", Lesson: "l1", InputPath: "/src/c1/l1.mp4", StartedAt: base}); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}
	testsupport.BeginRun(t, store, "publish", "c1", "l1", base.Add(time.Minute))

	last, _ := store.LastRun(ctx, "c1", "l1")
	if last == nil || last.ID != "publish" {
		t.Fatalf("LastRun = %+v", last)
	}
	encoded, err := store.LastTranscode(ctx, "c1", "l1")
	if err != nil || encoded == nil || encoded.ID != "encode" {
		t.Fatalf("LastTranscode = %+v, %v", encoded, err)
	}
}

func TestRecordRenditions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenLedger(t, cfg)
	ctx := context.Background()
	testsupport.BeginRun(t, store, "run-1", "c1", "l1", time.Now())

	err := store.RecordRenditions(ctx, "run-1", []ledger.RenditionOutcome{
		{Rendition: "medium", Status: "failed", Cause: "exit status 1", Elapsed: 1500 * time.Millisecond},
		{Rendition: "low", Status: "completed", Elapsed: time.Second},
	})
	if err != nil {
		t.Fatalf("RecordRenditions: %v", err)
	}
	outcomes, err := store.Renditions(ctx, "run-1")
	if err != nil || len(outcomes) != 2 {
		t.Fatalf("Renditions = %+v, %v", outcomes, err)
	}
	if outcomes[0].Rendition != "low" || outcomes[1].Cause != "exit status 1" || outcomes[1].Elapsed != 1500*time.Millisecond {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := ledger.OpenPath(path)
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	db.Close()

	if _, err := ledger.OpenPath(path); !errors.Is(err, ledger.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}
