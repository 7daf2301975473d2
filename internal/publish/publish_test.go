package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hlsladder/internal/config"
	"hlsladder/internal/rendition"
	"hlsladder/internal/storage"
	"hlsladder/internal/testsupport"
)

type fakeStore struct {
	mu       sync.Mutex
	calls    []string
	failKeys map[string]bool
	delay    time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeStore) PutObject(ctx context.Context, bucket, key, localPath string) error {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	if f.failKeys[key] {
		return errors.New("connection reset")
	}
	return nil
}

func (f *fakeStore) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func lessonFixture(t *testing.T, segments int, names ...string) (string, rendition.Ladder, Layout) {
	t.Helper()
	lessonDir := filepath.Join(t.TempDir(), "c1", "l1")
	testsupport.WriteRenditionTree(t, lessonDir, segments, names...)
	if err := os.WriteFile(filepath.Join(lessonDir, "master.m3u8"), []byte("#EXTM3U\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var renditions []config.Rendition
	for i, name := range names {
		renditions = append(renditions, config.Rendition{Name: name, Width: 320 * (i + 1), Height: 240 * (i + 1), AudioBitrate: "96k", Bandwidth: 400000 * (i + 1)})
	}
	ladder, err := rendition.Build(renditions, lessonDir, "http://host/seg/c1/l1")
	if err != nil {
		t.Fatal(err)
	}
	layout := Layout{Bucket: "videos", Course: "c1", Lesson: "l1", PlaylistName: "master.m3u8", SegmentExtension: ".ts"}
	return lessonDir, ladder, layout
}

func TestEnumerateOrderAndKeys(t *testing.T) {
	lessonDir, ladder, layout := lessonFixture(t, 2, "low", "medium")
	// Stray files are not published.
	testsupport.WriteFile(t, filepath.Join(lessonDir, "low", "notes.txt"), 4)

	tasks, err := Enumerate(lessonDir, ladder, layout)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	var keys []string
	for _, task := range tasks {
		keys = append(keys, task.Key)
	}
	want := []string{
		"c1/l1/master.m3u8",
		"c1/l1/low/master.m3u8",
		"c1/l1/medium/master.m3u8",
		"c1/l1/low/000.ts",
		"c1/l1/low/001.ts",
		"c1/l1/medium/000.ts",
		"c1/l1/medium/001.ts",
	}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	if !tasks[0].Master || tasks[1].Master {
		t.Fatal("only the first task should be the top-level manifest")
	}
	if tasks[3].LocalPath != filepath.Join(lessonDir, "low", "000.ts") || tasks[3].Bucket != "videos" {
		t.Fatalf("unexpected task %+v", tasks[3])
	}
}

func TestEnumerateMissingRenditionDir(t *testing.T) {
	lessonDir, ladder, layout := lessonFixture(t, 1, "low")
	if err := os.RemoveAll(filepath.Join(lessonDir, "low")); err != nil {
		t.Fatal(err)
	}
	if _, err := Enumerate(lessonDir, ladder, layout); err == nil {
		t.Fatal("expected error for missing rendition directory")
	}
}

func TestPublishAttemptsEveryTaskDespiteFailures(t *testing.T) {
	lessonDir, ladder, layout := lessonFixture(t, 3, "low", "medium")
	tasks, err := Enumerate(lessonDir, ladder, layout)
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{failKeys: map[string]bool{
		"c1/l1/low/001.ts":         true,
		"c1/l1/medium/master.m3u8": true,
	}}
	report := NewPipeline(store, Options{Concurrency: 2, MasterLast: true}).Publish(context.Background(), tasks)

	if report.Attempted() != len(tasks) || len(store.keys()) != len(tasks) {
		t.Fatalf("attempted %d (store saw %d), want %d", report.Attempted(), len(store.keys()), len(tasks))
	}
	if report.Succeeded() != len(tasks)-2 {
		t.Fatalf("succeeded = %d", report.Succeeded())
	}
	failed := report.FailedKeys()
	if len(failed) != 2 {
		t.Fatalf("failed keys = %v", failed)
	}
	var uploadErr *UploadError
	if !errors.As(report.Failed()[0].Err, &uploadErr) || !strings.HasPrefix(uploadErr.Key, "c1/l1/") {
		t.Fatalf("expected UploadError, got %v", report.Failed()[0].Err)
	}
	if !reflect.DeepEqual(report.Keys()[:1], []string{"c1/l1/master.m3u8"}) {
		t.Fatalf("report should preserve enumeration order, got %v", report.Keys())
	}
	if report.Bytes() != int64(188*5+len("#EXTM3U\n")*2) {
		t.Fatalf("bytes = %d", report.Bytes())
	}
}

func TestPublishMasterLast(t *testing.T) {
	lessonDir, ladder, layout := lessonFixture(t, 2, "low", "medium")
	tasks, err := Enumerate(lessonDir, ladder, layout)
	if err != nil {
		t.Fatal(err)
	}

	store := &fakeStore{}
	NewPipeline(store, Options{MasterLast: true}).Publish(context.Background(), tasks)
	calls := store.keys()
	if calls[len(calls)-1] != "c1/l1/master.m3u8" {
		t.Fatalf("top-level manifest should upload last, got %v", calls)
	}

	store = &fakeStore{}
	NewPipeline(store, Options{Concurrency: 1}).Publish(context.Background(), tasks)
	if store.keys()[0] != "c1/l1/master.m3u8" {
		t.Fatalf("top-level manifest should be issued first, got %v", store.keys())
	}
}

func TestPublishBoundsConcurrency(t *testing.T) {
	lessonDir, ladder, layout := lessonFixture(t, 6, "low", "medium")
	tasks, err := Enumerate(lessonDir, ladder, layout)
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{delay: 5 * time.Millisecond}
	NewPipeline(store, Options{Concurrency: 3}).Publish(context.Background(), tasks)
	if peak := store.peak.Load(); peak > 3 {
		t.Fatalf("peak in-flight uploads = %d, want <= 3", peak)
	}
}

func TestPublishCancelledStillSettlesEveryTask(t *testing.T) {
	lessonDir, ladder, layout := lessonFixture(t, 4, "low")
	tasks, err := Enumerate(lessonDir, ladder, layout)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var settled atomic.Int32
	report := NewPipeline(&fakeStore{}, Options{Concurrency: 1, OnResult: func(Result) { settled.Add(1) }}).Publish(ctx, tasks)
	if report.Attempted() != len(tasks) || int(settled.Load()) != len(tasks) {
		t.Fatalf("attempted %d settled %d, want %d", report.Attempted(), settled.Load(), len(tasks))
	}
}

func TestPublishToFilesystemMirror(t *testing.T) {
	lessonDir, ladder, layout := lessonFixture(t, 1, "low")
	tasks, err := Enumerate(lessonDir, ladder, layout)
	if err != nil {
		t.Fatal(err)
	}
	root := t.TempDir()
	store, err := storage.NewFilesystemStore(root)
	if err != nil {
		t.Fatal(err)
	}
	report := NewPipeline(store, Options{MasterLast: true}).Publish(context.Background(), tasks)
	if len(report.Failed()) != 0 {
		t.Fatalf("unexpected failures: %v", report.FailedKeys())
	}
	if _, err := os.Stat(filepath.Join(root, "videos", "c1", "l1", "low", "000.ts")); err != nil {
		t.Fatalf("segment not mirrored: %v", err)
	}
}

func TestFilterKeepsOrder(t *testing.T) {
	tasks := []Task{{Key: "a"}, {Key: "b"}, {Key: "c"}}
	got := Filter(tasks, []string{"c", "a", "zz"})
	if len(got) != 2 || got[0].Key != "a" || got[1].Key != "c" {
		t.Fatalf("Filter = %+v", got)
	}
}
