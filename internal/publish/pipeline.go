package publish

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"hlsladder/internal/logging"
	"hlsladder/internal/storage"
)

// Options configures a Pipeline.
type Options struct {
	// Concurrency bounds in-flight uploads; zero means unbounded.
	Concurrency int
	// MasterLast defers the top-level manifest until every other task settles,
	// so players never see a manifest whose variants are still missing.
	MasterLast bool
	Logger     *slog.Logger
	// OnResult, when set, is called once per settled task. It may be called
	// from several goroutines at once.
	OnResult func(Result)
}

// Pipeline uploads tasks to an object store.
type Pipeline struct {
	store storage.ObjectStore
	opts  Options
	log   *slog.Logger
}

// NewPipeline constructs a pipeline around store.
func NewPipeline(store storage.ObjectStore, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{store: store, opts: opts, log: logging.NewComponentLogger(logger, "publish")}
}

// Publish attempts every task once and returns the settled outcomes in task
// order. It never returns early on an upload failure.
func (p *Pipeline) Publish(ctx context.Context, tasks []Task) Report {
	start := time.Now()
	results := make([]Result, len(tasks))

	var masters, rest []int
	for i, t := range tasks {
		if t.Master {
			masters = append(masters, i)
		} else {
			rest = append(rest, i)
		}
	}

	if p.opts.MasterLast {
		p.run(ctx, tasks, rest, results)
		p.run(ctx, tasks, masters, results)
	} else {
		// Issued first, settled together with the rest.
		order := append(append([]int{}, masters...), rest...)
		p.run(ctx, tasks, order, results)
	}

	report := Report{Results: results, Elapsed: time.Since(start)}
	p.log.Info("publish complete",
		logging.String(logging.FieldEventType, "publish_complete"),
		logging.Int("attempted", report.Attempted()),
		logging.Int("succeeded", report.Succeeded()),
		logging.Int("failed", len(report.Failed())),
		logging.Int64("bytes", report.Bytes()),
		logging.Duration("elapsed", report.Elapsed),
	)
	return report
}

func (p *Pipeline) run(ctx context.Context, tasks []Task, indexes []int, results []Result) {
	if len(indexes) == 0 {
		return
	}
	limit := int64(p.opts.Concurrency)
	if limit <= 0 {
		limit = int64(len(indexes))
	}
	sem := semaphore.NewWeighted(limit)

	var wg sync.WaitGroup
	for _, idx := range indexes {
		task := tasks[idx]
		if err := sem.Acquire(ctx, 1); err != nil {
			// Cancelled while waiting: the task still counts as attempted.
			results[idx] = p.settle(task, 0, 0, err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			results[idx] = p.upload(ctx, task)
		}()
	}
	wg.Wait()
}

func (p *Pipeline) upload(ctx context.Context, task Task) Result {
	start := time.Now()
	var size int64
	if info, err := os.Stat(task.LocalPath); err == nil {
		size = info.Size()
	}
	err := p.store.PutObject(ctx, task.Bucket, task.Key, task.LocalPath)
	return p.settle(task, size, time.Since(start), err)
}

func (p *Pipeline) settle(task Task, size int64, elapsed time.Duration, err error) Result {
	res := Result{Task: task, Bytes: size, Elapsed: elapsed}
	if err != nil {
		res.Err = &UploadError{Key: task.Key, Err: err}
		res.Bytes = 0
		logging.WarnWithContext(p.log, "upload failed", "upload_failed",
			logging.Key(task.Key),
			logging.String("bucket", task.Bucket),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "re-run publish with --only-failed once the store is reachable"),
			logging.String(logging.FieldImpact, "artifact missing from the published lesson"),
		)
	} else {
		p.log.Debug("uploaded",
			logging.Key(task.Key),
			logging.Int64("bytes", size),
			logging.Duration("elapsed", elapsed),
		)
	}
	if p.opts.OnResult != nil {
		p.opts.OnResult(res)
	}
	return res
}
