package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"hlsladder/internal/config"
	"hlsladder/internal/ffmpeg"
	"hlsladder/internal/logging"
	"hlsladder/internal/progress"
	"hlsladder/internal/rendition"
	"hlsladder/internal/services"
)

const phaseTranscode = "transcode"

// Settings are the encoder parameters shared by every rendition.
type Settings struct {
	VideoCodec     string
	Preset         string
	Quality        int
	SegmentSeconds int
	ListSize       int
	PlaylistType   string
	SegmentPattern string
	PlaylistName   string
	// JobTimeout bounds one rendition's encode; zero disables it.
	JobTimeout time.Duration
}

// SettingsFromConfig extracts runner settings from the application config.
func SettingsFromConfig(cfg *config.Config) Settings {
	t := cfg.Transcode
	return Settings{
		VideoCodec:     t.VideoCodec,
		Preset:         t.Preset,
		Quality:        t.Quality,
		SegmentSeconds: t.SegmentSeconds,
		ListSize:       t.ListSize,
		PlaylistType:   t.PlaylistType,
		SegmentPattern: t.SegmentPattern,
		PlaylistName:   t.PlaylistName,
		JobTimeout:     cfg.JobTimeout(),
	}
}

// Runner performs one engine invocation per rendition.
type Runner struct {
	engine   ffmpeg.Engine
	settings Settings
	progress *progress.Aggregator
	logger   *slog.Logger
}

// NewRunner constructs a runner. agg may be nil when progress is not displayed.
func NewRunner(engine ffmpeg.Engine, settings Settings, agg *progress.Aggregator, logger *slog.Logger) *Runner {
	return &Runner{
		engine:   engine,
		settings: settings,
		progress: agg,
		logger:   logging.NewComponentLogger(logger, "runner"),
	}
}

// Run encodes spec from input. It never retries and always returns an Outcome;
// the engine's diagnostics travel in Outcome.Cause as a *JobError.
func (r *Runner) Run(ctx context.Context, spec rendition.Spec, input string) Outcome {
	ctx = services.WithRendition(services.WithPhase(ctx, phaseTranscode), spec.Name)
	logger := logging.WithContext(ctx, r.logger)
	start := time.Now()

	err := r.run(ctx, spec, input)
	outcome := Outcome{Rendition: spec.Name, Elapsed: time.Since(start)}
	if err != nil {
		outcome.Status = StatusFailed
		outcome.Cause = &JobError{Rendition: spec.Name, Phase: phaseTranscode, Err: err}
		attrs := []logging.Attr{logging.Error(err), logging.Duration("elapsed", outcome.Elapsed)}
		var exitErr *ffmpeg.ExitError
		if errors.As(err, &exitErr) {
			attrs = append(attrs, logging.Int("exit_code", exitErr.ExitCode),
				logging.String("command", exitErr.Command()),
				logging.String("stderr_tail", lastLines(exitErr.Stderr, 5)),
			)
		}
		logging.ErrorWithContext(logger, "rendition encode failed", "transcode_failed", attrs...)
	} else {
		outcome.Status = StatusCompleted
		logger.Info("rendition encode completed", logging.Duration("elapsed", outcome.Elapsed))
	}
	r.progress.Finish(spec.Name, outcome.Cause)
	return outcome
}

func (r *Runner) run(ctx context.Context, spec rendition.Spec, input string) error {
	if r.engine == nil {
		return services.Wrap(services.ErrConfiguration, phaseTranscode, "run", "no encoding engine configured", nil)
	}
	if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrFilesystem, phaseTranscode, "create output dir", spec.OutputDir, err)
	}

	jobCtx := ctx
	if r.settings.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, r.settings.JobTimeout)
		defer cancel()
	}

	req := ffmpeg.Request{
		Input:          input,
		OutputDir:      spec.OutputDir,
		Width:          spec.Width,
		Height:         spec.Height,
		AudioBitrate:   spec.AudioBitrate,
		VideoCodec:     r.settings.VideoCodec,
		Preset:         r.settings.Preset,
		Quality:        r.settings.Quality,
		SegmentSeconds: r.settings.SegmentSeconds,
		ListSize:       r.settings.ListSize,
		PlaylistType:   r.settings.PlaylistType,
		BaseURL:        spec.PublishBaseURL,
		SegmentPattern: r.settings.SegmentPattern,
		PlaylistName:   r.settings.PlaylistName,
	}
	err := r.engine.Transcode(jobCtx, req, func(p ffmpeg.Progress) {
		r.progress.Update(progress.Record{
			Rendition:  spec.Name,
			Percent:    p.Percent,
			Frames:     p.Frames,
			CurrentFPS: p.FPS,
			Timemark:   p.Timemark,
		})
	})
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, phaseTranscode, "encode", fmt.Sprintf("exceeded %s", r.settings.JobTimeout), err)
	}
	return err
}

func lastLines(text string, n int) string {
	count := 0
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '\n' {
			count++
			if count == n {
				return text[i+1:]
			}
		}
	}
	return text
}
