package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"hlsladder/internal/logging"
	"hlsladder/internal/rendition"
	"hlsladder/internal/services"
)

const phasePrepare = "prepare"

// BatchOptions configures a Batch.
type BatchOptions struct {
	// OutputRoot holds the lock file; LessonDir must live beneath it.
	OutputRoot string
	LessonDir  string
	// Concurrency caps simultaneous engine processes; 0 runs all at once.
	Concurrency int
	// RootLocked skips taking the output root lock because the caller
	// already holds it.
	RootLocked bool
	Logger     *slog.Logger
}

// Batch runs every rendition of one lesson as a unit.
type Batch struct {
	runner *Runner
	opts   BatchOptions
	logger *slog.Logger
}

// Result is the per-rendition outcome set, in ladder order.
type Result struct {
	LessonDir string
	Outcomes  []Outcome
	Elapsed   time.Duration
}

// Failed returns the outcomes that did not complete.
func (r Result) Failed() []Outcome {
	var failed []Outcome
	for _, outcome := range r.Outcomes {
		if !outcome.Completed() {
			failed = append(failed, outcome)
		}
	}
	return failed
}

// NewBatch constructs a batch orchestrator.
func NewBatch(runner *Runner, opts BatchOptions) *Batch {
	return &Batch{
		runner: runner,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "batch"),
	}
}

// Run resets the lesson tree, encodes every spec from input, and waits for all
// of them. It returns a *BatchError when any rendition failed; the Result is
// populated either way.
func (b *Batch) Run(ctx context.Context, input string, ladder rendition.Ladder) (Result, error) {
	result := Result{LessonDir: b.opts.LessonDir}
	if len(ladder) == 0 {
		return result, services.Wrap(services.ErrConfiguration, phasePrepare, "run batch", "rendition ladder is empty", nil)
	}
	if err := ladder.Validate(); err != nil {
		return result, err
	}
	if info, err := os.Stat(input); err != nil {
		return result, services.Wrap(services.ErrValidation, phasePrepare, "stat input", input, err)
	} else if info.IsDir() {
		return result, services.Wrap(services.ErrValidation, phasePrepare, "stat input", input+" is a directory", nil)
	}

	if err := b.checkLayout(); err != nil {
		return result, err
	}

	unlock, err := b.lock()
	if err != nil {
		return result, err
	}
	defer unlock()

	if err := b.prepareTree(ladder); err != nil {
		return result, err
	}

	logger := logging.WithContext(ctx, b.logger)
	limit := b.opts.Concurrency
	if limit <= 0 || limit > len(ladder) {
		limit = len(ladder)
	}
	logger.Info("transcode batch starting",
		logging.String("input", input),
		logging.Int("renditions", len(ladder)),
		logging.Int("concurrency", limit),
	)

	start := time.Now()
	outcomes := make([]Outcome, len(ladder))
	var group errgroup.Group
	group.SetLimit(limit)
	for i, spec := range ladder {
		group.Go(func() error {
			outcomes[i] = b.runner.Run(ctx, spec, input)
			return nil
		})
	}
	_ = group.Wait()

	result.Outcomes = outcomes
	result.Elapsed = time.Since(start)

	if failed := result.Failed(); len(failed) > 0 {
		batchErr := &BatchError{Total: len(ladder), Failed: failed}
		logging.ErrorWithContext(logger, "transcode batch failed", "batch_failed",
			logging.Any("failed", batchErr.Renditions()),
			logging.Duration("elapsed", result.Elapsed),
			logging.String(logging.FieldErrorHint, "inspect the encoder stderr tail above; nothing was published"),
		)
		return result, batchErr
	}
	logger.Info("transcode batch completed", logging.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (b *Batch) lock() (func(), error) {
	if b.opts.RootLocked {
		return func() {}, nil
	}
	lock, err := LockOutputRoot(b.opts.OutputRoot)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			b.logger.Warn("release output lock failed", logging.Error(err))
		}
	}, nil
}

// checkLayout refuses to reset anything other than a strict subdirectory of
// the output root.
func (b *Batch) checkLayout() error {
	root := filepath.Clean(b.opts.OutputRoot)
	lesson := filepath.Clean(b.opts.LessonDir)
	rel, err := filepath.Rel(root, lesson)
	if b.opts.OutputRoot == "" || b.opts.LessonDir == "" || err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return services.Wrap(services.ErrConfiguration, phasePrepare, "check layout",
			fmt.Sprintf("lesson dir %q must be inside output root %q", b.opts.LessonDir, b.opts.OutputRoot), nil)
	}
	return nil
}

// prepareTree removes the lesson directory and recreates one subdirectory per
// spec. It completes before any job starts.
func (b *Batch) prepareTree(ladder rendition.Ladder) error {
	if err := os.RemoveAll(b.opts.LessonDir); err != nil {
		return services.Wrap(services.ErrFilesystem, phasePrepare, "reset lesson dir", b.opts.LessonDir, err)
	}
	for _, spec := range ladder {
		if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
			return services.Wrap(services.ErrFilesystem, phasePrepare, "create rendition dir", spec.OutputDir, err)
		}
	}
	return nil
}
