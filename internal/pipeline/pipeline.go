package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"hlsladder/internal/config"
	"hlsladder/internal/ffmpeg"
	"hlsladder/internal/ledger"
	"hlsladder/internal/logging"
	"hlsladder/internal/manifest"
	"hlsladder/internal/metrics"
	"hlsladder/internal/progress"
	"hlsladder/internal/publish"
	"hlsladder/internal/rendition"
	"hlsladder/internal/services"
	"hlsladder/internal/storage"
	"hlsladder/internal/transcode"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Request names the lesson to process.
type Request struct {
	Course string
	Lesson string
	// Input overrides the source video; empty resolves it from the config.
	Input       string
	SkipPublish bool
}

// PublishRequest names a lesson tree to publish without transcoding.
type PublishRequest struct {
	Course string
	Lesson string
	// OnlyFailed retries the keys the lesson's last run failed to upload.
	OnlyFailed bool
	// Force publishes a tree whose transcode the ledger never recorded.
	// A recorded transcode that failed is never published.
	Force bool
}

// Summary describes a finished run.
type Summary struct {
	RunID        string
	Course       string
	Lesson       string
	LessonDir    string
	ManifestPath string
	Batch        transcode.Result
	Report       publish.Report
	Published    bool
	Elapsed      time.Duration
}

// Pipeline runs lessons against one configuration.
type Pipeline struct {
	cfg     *config.Config
	logger  *slog.Logger
	engine  ffmpeg.Engine
	store   storage.ObjectStore
	ledger  *ledger.Store
	metrics *metrics.Metrics
	display DisplayFactory
}

// New constructs a pipeline. The engine defaults to the ffmpeg CLI named in
// cfg; the object store is opened from cfg on first publish.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.engine == nil {
		p.engine = ffmpeg.NewCLI(
			ffmpeg.WithBinary(cfg.Transcode.FFmpegBinary),
			ffmpeg.WithProbeBinary(cfg.Transcode.FFprobeBinary),
			ffmpeg.WithLogger(p.logger),
		)
	}
	if p.display == nil {
		logger := logging.NewComponentLogger(p.logger, "progress")
		p.display = func(ladder rendition.Ladder) progress.Display {
			return progress.NewLogDisplay(logger, ladder.Names())
		}
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	return p
}

// ValidateIDs rejects course and lesson identifiers that are not safe path
// and key segments.
func ValidateIDs(course, lesson string) error {
	for label, id := range map[string]string{"course": course, "lesson": lesson} {
		if !idPattern.MatchString(id) || id == "." || id == ".." {
			return services.Wrap(services.ErrValidation, "prepare", "validate "+label, fmt.Sprintf("invalid %s id %q", label, id), nil)
		}
	}
	return nil
}

// Run transcodes, gates, writes the manifest, and publishes one lesson.
func (p *Pipeline) Run(ctx context.Context, req Request) (Summary, error) {
	summary := Summary{Course: req.Course, Lesson: req.Lesson}
	if err := ValidateIDs(req.Course, req.Lesson); err != nil {
		return summary, err
	}
	input := req.Input
	if input == "" {
		input = p.cfg.SourcePath(req.Course, req.Lesson)
	}
	ladder, err := rendition.FromConfig(p.cfg, req.Course, req.Lesson)
	if err != nil {
		return summary, err
	}
	if !req.SkipPublish {
		if err := p.openStore(ctx); err != nil {
			return summary, err
		}
	}
	unlock, err := p.lockRoot()
	if err != nil {
		return summary, err
	}
	defer unlock()

	run := p.begin(ctx, req.Course, req.Lesson, input, len(ladder))
	ctx = run.ctx
	summary.RunID = run.id
	summary.LessonDir = p.cfg.LessonOutputDir(req.Course, req.Lesson)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("run starting",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("input", input),
		logging.Any("renditions", ladder.Names()),
		logging.String("output_dir", summary.LessonDir),
	)

	batch, batchErr := p.transcode(ctx, input, ladder, summary.LessonDir)
	summary.Batch = batch
	p.recordRenditions(ctx, run, batch)
	if batchErr != nil {
		return p.finish(ctx, run, summary, batchErr)
	}

	if err := manifest.CheckRenditions(ladder, p.cfg.Transcode.PlaylistName); err != nil {
		return p.finish(ctx, run, summary, err)
	}
	manifestPath, err := manifest.WriteMaster(summary.LessonDir, ladder)
	if err != nil {
		return p.finish(ctx, run, summary, err)
	}
	summary.ManifestPath = manifestPath
	logger.Info("manifest written", logging.String("path", manifestPath))

	if req.SkipPublish {
		return p.finish(ctx, run, summary, nil)
	}
	layout := publish.LayoutFromConfig(p.cfg, req.Course, req.Lesson)
	tasks, err := publish.Enumerate(summary.LessonDir, ladder, layout)
	if err != nil {
		return p.finish(ctx, run, summary, err)
	}
	summary.Report = p.upload(ctx, run, tasks)
	summary.Published = true
	return p.finish(ctx, run, summary, nil)
}

// PublishExisting publishes a lesson tree produced by an earlier run. The
// tree is only published when its last recorded transcode completed every
// rendition. With OnlyFailed, only the keys the lesson's last run failed to
// upload are retried and their outcomes are written back to that run.
func (p *Pipeline) PublishExisting(ctx context.Context, req PublishRequest) (Summary, error) {
	course, lesson := req.Course, req.Lesson
	summary := Summary{Course: course, Lesson: lesson, LessonDir: p.cfg.LessonOutputDir(course, lesson)}
	if err := ValidateIDs(course, lesson); err != nil {
		return summary, err
	}
	ladder, err := rendition.FromConfig(p.cfg, course, lesson)
	if err != nil {
		return summary, err
	}
	unlock, err := p.lockRoot()
	if err != nil {
		return summary, err
	}
	defer unlock()

	if err := manifest.CheckRenditions(ladder, p.cfg.Transcode.PlaylistName); err != nil {
		return summary, err
	}
	summary.ManifestPath = filepath.Join(summary.LessonDir, manifest.FileName)
	if err := p.verifyTranscode(ctx, course, lesson, ladder, summary.ManifestPath, req.Force); err != nil {
		return summary, err
	}
	if _, err := os.Stat(summary.ManifestPath); errors.Is(err, os.ErrNotExist) {
		if _, err := manifest.WriteMaster(summary.LessonDir, ladder); err != nil {
			return summary, err
		}
	}

	layout := publish.LayoutFromConfig(p.cfg, course, lesson)
	tasks, err := publish.Enumerate(summary.LessonDir, ladder, layout)
	if err != nil {
		return summary, err
	}

	var run *runState
	if req.OnlyFailed {
		if p.ledger == nil {
			return summary, services.Wrap(services.ErrConfiguration, "publish", "only failed", "ledger is not available", nil)
		}
		last, err := p.ledger.LastRun(ctx, course, lesson)
		if err != nil {
			return summary, services.Wrap(services.ErrFilesystem, "publish", "read ledger", "", err)
		}
		if last == nil {
			return summary, services.Wrap(services.ErrValidation, "publish", "only failed", fmt.Sprintf("no recorded run for %s/%s", course, lesson), nil)
		}
		keys, err := p.ledger.FailedKeys(ctx, last.ID)
		if err != nil {
			return summary, services.Wrap(services.ErrFilesystem, "publish", "read ledger", "", err)
		}
		tasks = publish.Filter(tasks, keys)
		if len(tasks) == 0 {
			summary.RunID = last.ID
			logging.WithContext(services.WithRunID(ctx, last.ID), p.logger).Info("nothing to republish",
				logging.String("status", string(last.Status)),
			)
			return summary, nil
		}
		run = p.resume(ctx, last)
	} else {
		run = p.begin(ctx, course, lesson, "", len(ladder))
	}
	ctx = run.ctx
	summary.RunID = run.id

	if err := p.openStore(ctx); err != nil {
		return p.finish(ctx, run, summary, err)
	}
	summary.Report = p.upload(ctx, run, tasks)
	summary.Published = true
	return p.finish(ctx, run, summary, nil)
}

// verifyTranscode refuses to publish a lesson whose last recorded transcode
// left any rendition of the ladder incomplete. Without a recorded transcode
// the tree is trusted only when its top-level manifest exists or force is set;
// a batch resets the tree, so a manifest on disk was written by a batch that
// completed.
func (p *Pipeline) verifyTranscode(ctx context.Context, course, lesson string, ladder rendition.Ladder, manifestPath string, force bool) error {
	if p.ledger != nil {
		last, err := p.ledger.LastTranscode(ctx, course, lesson)
		if err != nil {
			return services.Wrap(services.ErrFilesystem, "publish", "read ledger", "", err)
		}
		if last != nil {
			outcomes, err := p.ledger.Renditions(ctx, last.ID)
			if err != nil {
				return services.Wrap(services.ErrFilesystem, "publish", "read ledger", "", err)
			}
			if missing := incompleteRenditions(ladder, outcomes); len(missing) > 0 {
				return services.Wrap(services.ErrValidation, "publish", "verify transcode",
					fmt.Sprintf("run %s (%s) did not complete %s; rerun the lesson before publishing", last.ID, last.Status, strings.Join(missing, ", ")), nil)
			}
			return nil
		}
	}
	if _, err := os.Stat(manifestPath); err == nil {
		return nil
	}
	if force {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "publishing unverified lesson tree", "publish_unverified",
			logging.String("lesson", course+"/"+lesson),
			logging.String(logging.FieldErrorHint, "no completed transcode is recorded for this lesson"),
			logging.String(logging.FieldImpact, "playlists may reference incomplete renditions"),
		)
		return nil
	}
	return services.Wrap(services.ErrValidation, "publish", "verify transcode",
		fmt.Sprintf("no completed transcode recorded for %s/%s; rerun the lesson or publish with --force", course, lesson), nil)
}

// incompleteRenditions lists ladder names without a completed outcome.
func incompleteRenditions(ladder rendition.Ladder, outcomes []ledger.RenditionOutcome) []string {
	completed := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		completed[o.Rendition] = o.Status == transcode.StatusCompleted.String()
	}
	var missing []string
	for _, name := range ladder.Names() {
		if !completed[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// lockRoot holds the output root for the duration of a run or publish.
func (p *Pipeline) lockRoot() (func(), error) {
	lock, err := transcode.LockOutputRoot(p.cfg.Paths.OutputRoot)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("release output lock failed", logging.Error(err))
		}
	}, nil
}

func (p *Pipeline) openStore(ctx context.Context) error {
	if p.store != nil {
		return nil
	}
	store, err := storage.New(ctx, p.cfg)
	if err != nil {
		return err
	}
	p.store = store
	return nil
}

func (p *Pipeline) transcode(ctx context.Context, input string, ladder rendition.Ladder, lessonDir string) (transcode.Result, error) {
	agg := progress.NewAggregator(ladder.Names())
	display := p.display(ladder)

	watchCtx, stopWatch := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		progress.Watch(watchCtx, agg, display, progress.DefaultInterval)
	}()

	runner := transcode.NewRunner(p.engine, transcode.SettingsFromConfig(p.cfg), agg, p.logger)
	batch := transcode.NewBatch(runner, transcode.BatchOptions{
		OutputRoot:  p.cfg.Paths.OutputRoot,
		LessonDir:   lessonDir,
		Concurrency: p.cfg.Transcode.Concurrency,
		RootLocked:  true,
		Logger:      p.logger,
	})
	result, err := batch.Run(services.WithPhase(ctx, "transcode"), input, ladder)

	stopWatch()
	wg.Wait()
	return result, err
}

func (p *Pipeline) upload(ctx context.Context, run *runState, tasks []publish.Task) publish.Report {
	pipe := publish.NewPipeline(p.store, publish.Options{
		Concurrency: p.cfg.Publish.Concurrency,
		MasterLast:  p.cfg.Publish.MasterLast,
		Logger:      logging.WithContext(services.WithPhase(ctx, "publish"), p.logger),
		OnResult: func(res publish.Result) {
			p.metrics.ObserveUpload(res.Err == nil, res.Bytes)
		},
	})
	report := pipe.Publish(ctx, tasks)
	p.recordArtifacts(run, report)
	return report
}
