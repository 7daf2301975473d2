package transcode_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"hlsladder/internal/ffmpeg"
	"hlsladder/internal/logging"
	"hlsladder/internal/progress"
	"hlsladder/internal/rendition"
	"hlsladder/internal/services"
	"hlsladder/internal/testsupport"
	"hlsladder/internal/transcode"
)

func TestRunnerReportsOnlyOwnRendition(t *testing.T) {
	dir := t.TempDir()
	spec := rendition.Spec{Name: "low", Width: 426, Height: 360, AudioBitrate: "96k", OutputDir: filepath.Join(dir, "low")}
	agg := progress.NewAggregator([]string{"low", "medium"})
	runner := transcode.NewRunner(&fakeEngine{}, defaultSettings(), agg, logging.NewNop())

	outcome := runner.Run(context.Background(), spec, "/input.mp4")
	if !outcome.Completed() {
		t.Fatalf("expected completion, got %+v", outcome)
	}
	snap := agg.Snapshot()
	if snap[0].State != progress.StateCompleted {
		t.Fatalf("low not completed: %+v", snap[0])
	}
	if snap[1].State != progress.StatePending {
		t.Fatalf("medium should be untouched: %+v", snap[1])
	}
}

func TestRunnerWithoutEngineFails(t *testing.T) {
	runner := transcode.NewRunner(nil, defaultSettings(), nil, nil)
	outcome := runner.Run(context.Background(), rendition.Spec{Name: "low", OutputDir: t.TempDir()}, "/input.mp4")
	if outcome.Status != transcode.StatusFailed || !errors.Is(outcome.Cause, services.ErrConfiguration) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestRunnerDrivesScriptedEncoder(t *testing.T) {
	bin := t.TempDir()
	testsupport.FFmpegStub{Segments: 2, FailWidths: []int{640}, FailPercent: 40}.Install(t, bin)
	engine := ffmpeg.NewCLI(ffmpeg.WithBinary(filepath.Join(bin, "ffmpeg")), ffmpeg.WithProbeBinary(filepath.Join(bin, "ffprobe")))
	settings := defaultSettings()
	settings.VideoCodec = "libx264"
	agg := progress.NewAggregator([]string{"medium"})
	runner := transcode.NewRunner(engine, settings, agg, logging.NewNop())

	spec := rendition.Spec{Name: "medium", Width: 640, Height: 480, AudioBitrate: "128k", OutputDir: filepath.Join(t.TempDir(), "medium")}
	outcome := runner.Run(context.Background(), spec, "/input.mp4")
	var exitErr *ffmpeg.ExitError
	if outcome.Completed() || !errors.As(outcome.Cause, &exitErr) {
		t.Fatalf("expected encoder failure, got %+v", outcome)
	}
	if got := agg.Snapshot()[0]; got.Percent != 40 || got.State != progress.StateFailed {
		t.Fatalf("unexpected progress entry: %+v", got)
	}
}
