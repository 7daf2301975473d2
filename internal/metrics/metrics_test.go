package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCounters(t *testing.T) {
	m := New()
	m.RunStarted()
	m.ObserveTranscode("low", "completed", 12*time.Second)
	m.ObserveTranscode("medium", "failed", 3*time.Second)
	m.ObserveUpload(true, 188)
	m.ObserveUpload(true, 12)
	m.ObserveUpload(false, 999)

	if got := testutil.ToFloat64(m.renditions.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed renditions = %v", got)
	}
	if got := testutil.ToFloat64(m.uploads.WithLabelValues("uploaded")); got != 2 {
		t.Fatalf("uploaded = %v", got)
	}
	if got := testutil.ToFloat64(m.uploadBytes); got != 200 {
		t.Fatalf("upload bytes = %v", got)
	}
	if got := testutil.ToFloat64(m.runsInProgress); got != 1 {
		t.Fatalf("runs in progress = %v", got)
	}
	if n := testutil.CollectAndCount(m.transcodeDuration); n != 2 {
		t.Fatalf("histogram series = %d", n)
	}

	m.RunFinished("completed", 90*time.Second)
	if got := testutil.ToFloat64(m.runsInProgress); got != 0 {
		t.Fatalf("runs in progress after finish = %v", got)
	}
	if got := testutil.ToFloat64(m.runDuration); got != 90 {
		t.Fatalf("run duration = %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveUpload(false, 0)
	path := filepath.Join(t.TempDir(), "collector", "hlsladder.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `hlsladder_uploads_total{status="failed"} 1`) {
		t.Fatalf("unexpected textfile:\n%s", data)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RunStarted()
	m.ObserveTranscode("low", "completed", time.Second)
	m.ObserveUpload(true, 1)
	m.RunFinished("completed", time.Second)
	if err := m.WriteTextfile("/nonexistent/x.prom"); err != nil {
		t.Fatalf("nil WriteTextfile: %v", err)
	}
}
