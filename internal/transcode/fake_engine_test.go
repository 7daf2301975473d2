package transcode_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"hlsladder/internal/ffmpeg"
)

// fakeEngine simulates ffmpeg: it reports progress in 20% steps, writes a
// playlist and two segments, and fails renditions listed in failAfter once
// progress passes the given percentage.
type fakeEngine struct {
	failAfter map[int]float64
	step      time.Duration
	block     bool

	mu       sync.Mutex
	requests []ffmpeg.Request

	active    atomic.Int32
	maxActive atomic.Int32
}

func (f *fakeEngine) Transcode(ctx context.Context, req ffmpeg.Request, progress func(ffmpeg.Progress)) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		prev := f.maxActive.Load()
		if n <= prev || f.maxActive.CompareAndSwap(prev, n) {
			break
		}
	}

	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}

	failAt, fails := f.failAfter[req.Width]
	for pct := 0.0; pct <= 100; pct += 20 {
		if fails && pct > failAt {
			return &ffmpeg.ExitError{Args: []string{"ffmpeg"}, ExitCode: 1, Stderr: "frame=  100\nConversion failed!"}
		}
		if progress != nil {
			progress(ffmpeg.Progress{Percent: pct, Frames: int64(pct), Timemark: "00:00:01.00"})
		}
		if f.step > 0 {
			time.Sleep(f.step)
		}
	}
	for _, name := range []string{"000.ts", "001.ts", req.PlaylistName} {
		if err := os.WriteFile(filepath.Join(req.OutputDir, name), []byte("data"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
