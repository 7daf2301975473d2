package ffmpeg_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hlsladder/internal/ffmpeg"
	"hlsladder/internal/services"
	"hlsladder/internal/testsupport"
)

func newRequest(t *testing.T, width int) ffmpeg.Request {
	t.Helper()
	out := filepath.Join(t.TempDir(), "low")
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return ffmpeg.Request{
		Input:          "/videos/lesson.mp4",
		OutputDir:      out,
		Width:          width,
		Height:         360,
		AudioBitrate:   "96k",
		VideoCodec:     "libx264",
		SegmentSeconds: 10,
		PlaylistType:   "vod",
		SegmentPattern: "%03d.ts",
		PlaylistName:   "master.m3u8",
	}
}

func TestCLITranscodeReportsProgressAndWritesOutput(t *testing.T) {
	bin := t.TempDir()
	testsupport.FFmpegStub{Segments: 3, DurationSeconds: 10}.Install(t, bin)
	engine := ffmpeg.NewCLI(
		ffmpeg.WithBinary(filepath.Join(bin, "ffmpeg")),
		ffmpeg.WithProbeBinary(filepath.Join(bin, "ffprobe")),
	)

	req := newRequest(t, 426)
	var samples []ffmpeg.Progress
	if err := engine.Transcode(context.Background(), req, func(p ffmpeg.Progress) {
		samples = append(samples, p)
	}); err != nil {
		t.Fatalf("Transcode: %v", err)
	}

	if len(samples) < 2 {
		t.Fatalf("expected progress samples, got %d", len(samples))
	}
	last := samples[len(samples)-1]
	if !last.Done || last.Percent != 100 {
		t.Fatalf("unexpected final sample: %+v", last)
	}
	for _, name := range []string{"000.ts", "001.ts", "002.ts", "master.m3u8"} {
		if _, err := os.Stat(filepath.Join(req.OutputDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestCLITranscodeCapturesStderrOnFailure(t *testing.T) {
	bin := t.TempDir()
	testsupport.FFmpegStub{FailWidths: []int{640}, FailPercent: 40, FailMessage: "Error while opening encoder"}.Install(t, bin)
	engine := ffmpeg.NewCLI(
		ffmpeg.WithBinary(filepath.Join(bin, "ffmpeg")),
		ffmpeg.WithProbeBinary(filepath.Join(bin, "ffprobe")),
	)

	var lastPercent float64
	err := engine.Transcode(context.Background(), newRequest(t, 640), func(p ffmpeg.Progress) {
		lastPercent = p.Percent
	})
	var exitErr *ffmpeg.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %v", err)
	}
	if exitErr.ExitCode != 1 {
		t.Fatalf("unexpected exit code %d", exitErr.ExitCode)
	}
	if cmd := exitErr.Command(); !strings.HasPrefix(cmd, filepath.Join(bin, "ffmpeg")+" ") || !strings.Contains(cmd, "-hls_time") {
		t.Fatalf("unexpected command %q", cmd)
	}
	if !strings.Contains(exitErr.Stderr, "Error while opening encoder") {
		t.Fatalf("stderr not captured: %q", exitErr.Stderr)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected external tool marker")
	}
	if lastPercent != 40 {
		t.Fatalf("expected progress to stop at 40%%, got %v", lastPercent)
	}
}

func TestCLITranscodeToleratesProbeFailure(t *testing.T) {
	bin := t.TempDir()
	testsupport.FFmpegStub{}.Install(t, bin)
	testsupport.WriteScript(t, filepath.Join(bin, "ffprobe"), "exit 1\n")
	engine := ffmpeg.NewCLI(
		ffmpeg.WithBinary(filepath.Join(bin, "ffmpeg")),
		ffmpeg.WithProbeBinary(filepath.Join(bin, "ffprobe")),
	)

	var samples []ffmpeg.Progress
	if err := engine.Transcode(context.Background(), newRequest(t, 426), func(p ffmpeg.Progress) {
		samples = append(samples, p)
	}); err != nil {
		t.Fatalf("Transcode: %v", err)
	}
	for _, s := range samples {
		if s.Percent >= 0 {
			t.Fatalf("expected unknown percent without duration, got %+v", s)
		}
	}
}

func TestCLITranscodeRejectsInvalidRequest(t *testing.T) {
	err := ffmpeg.NewCLI().Transcode(context.Background(), ffmpeg.Request{}, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
