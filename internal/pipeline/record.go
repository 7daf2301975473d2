package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"hlsladder/internal/ledger"
	"hlsladder/internal/logging"
	"hlsladder/internal/publish"
	"hlsladder/internal/services"
	"hlsladder/internal/transcode"
)

// runState tracks the ledger row a run reports into.
type runState struct {
	id      string
	ctx     context.Context
	start   time.Time
	total   int
	resumed *ledger.Run
}

func (p *Pipeline) begin(ctx context.Context, course, lesson, input string, renditions int) *runState {
	id := uuid.NewString()
	run := &runState{
		id:    id,
		ctx:   services.WithLesson(services.WithRunID(ctx, id), course+"/"+lesson),
		start: time.Now(),
		total: renditions,
	}
	p.metrics.RunStarted()
	if p.ledger != nil {
		err := p.ledger.BeginRun(ctx, ledger.Run{
			ID:              id,
			Course:          course,
			Lesson:          lesson,
			InputPath:       input,
			RenditionsTotal: renditions,
			StartedAt:       run.start,
		})
		if err != nil {
			p.ledgerWarning(run.ctx, "begin run", err)
		}
	}
	return run
}

func (p *Pipeline) resume(ctx context.Context, last *ledger.Run) *runState {
	p.metrics.RunStarted()
	return &runState{
		id:      last.ID,
		ctx:     services.WithLesson(services.WithRunID(ctx, last.ID), last.Course+"/"+last.Lesson),
		start:   time.Now(),
		total:   last.RenditionsTotal,
		resumed: last,
	}
}

func (p *Pipeline) recordRenditions(ctx context.Context, run *runState, result transcode.Result) {
	outcomes := make([]ledger.RenditionOutcome, 0, len(result.Outcomes))
	for _, o := range result.Outcomes {
		p.metrics.ObserveTranscode(o.Rendition, o.Status.String(), o.Elapsed)
		rec := ledger.RenditionOutcome{Rendition: o.Rendition, Status: o.Status.String(), Elapsed: o.Elapsed}
		if o.Cause != nil {
			rec.Cause = o.Cause.Error()
		}
		outcomes = append(outcomes, rec)
	}
	if p.ledger == nil || len(outcomes) == 0 {
		return
	}
	if err := p.ledger.RecordRenditions(context.WithoutCancel(ctx), run.id, outcomes); err != nil {
		p.ledgerWarning(ctx, "record renditions", err)
	}
}

func (p *Pipeline) recordArtifacts(run *runState, report publish.Report) {
	if p.ledger == nil || report.Attempted() == 0 {
		return
	}
	artifacts := make([]ledger.Artifact, 0, report.Attempted())
	for _, res := range report.Results {
		a := ledger.Artifact{
			Key:       res.Task.Key,
			Bucket:    res.Task.Bucket,
			LocalPath: res.Task.LocalPath,
			Status:    ledger.ArtifactUploaded,
			Bytes:     res.Bytes,
		}
		if res.Err != nil {
			a.Status = ledger.ArtifactFailed
			a.ErrorMessage = res.Err.Error()
		}
		artifacts = append(artifacts, a)
	}
	// Written even when the run context is cancelled.
	if err := p.ledger.RecordArtifacts(context.WithoutCancel(run.ctx), run.id, artifacts); err != nil {
		p.ledgerWarning(run.ctx, "record artifacts", err)
	}
}

// finish classifies the run, persists its summary, and returns the error the
// caller should surface.
func (p *Pipeline) finish(ctx context.Context, run *runState, summary Summary, runErr error) (Summary, error) {
	summary.Elapsed = time.Since(run.start)
	logger := logging.WithContext(ctx, p.logger)

	status := ledger.RunCompleted
	failedUploads := len(summary.Report.Failed())
	switch {
	case runErr != nil:
		status = ledger.RunFailed
	case failedUploads > 0:
		status = ledger.RunPartial
		runErr = services.Wrap(services.ErrPartialPublish, "publish", "upload artifacts",
			fmt.Sprintf("%d of %d uploads failed", failedUploads, summary.Report.Attempted()), nil)
	}

	p.metrics.RunFinished(string(status), summary.Elapsed)
	if err := p.metrics.WriteTextfile(p.cfg.Metrics.TextfilePath); err != nil {
		logging.WarnWithContext(logger, "metrics export failed", "metrics_export_failed",
			logging.Error(err),
			logging.String("path", p.cfg.Metrics.TextfilePath),
			logging.String(logging.FieldImpact, "run metrics not exported"),
		)
	}
	p.persistSummary(ctx, run, summary, status, runErr)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("status", string(status)),
		logging.Duration("elapsed", summary.Elapsed),
	}
	if summary.Published {
		attrs = append(attrs,
			logging.Int("uploads_attempted", summary.Report.Attempted()),
			logging.Int("uploads_failed", failedUploads),
		)
	}
	switch status {
	case ledger.RunFailed:
		logging.ErrorWithContext(logger, "run failed", "run_failed", append(attrs, logging.Error(runErr))...)
	case ledger.RunPartial:
		logging.WarnWithContext(logger, "run published with upload failures", "run_partial",
			append(attrs,
				logging.String(logging.FieldErrorHint, "retry with: hlsladder publish --only-failed"),
				logging.String(logging.FieldImpact, "some artifacts are missing from the store"),
			)...)
	default:
		logger.Info("run completed", logging.Args(attrs...)...)
	}
	return summary, runErr
}

func (p *Pipeline) persistSummary(ctx context.Context, run *runState, summary Summary, status ledger.RunStatus, runErr error) {
	if p.ledger == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	record := ledger.Summary{
		Status:           status,
		RenditionsTotal:  run.total,
		RenditionsFailed: len(summary.Batch.Failed()),
		UploadsAttempted: summary.Report.Attempted(),
		UploadsFailed:    len(summary.Report.Failed()),
	}
	if runErr != nil {
		record.ErrorMessage = runErr.Error()
	}
	if run.resumed != nil {
		// Retries refine the original run: keep its transcode counters and
		// recount uploads from the artifact table.
		record.RenditionsFailed = run.resumed.RenditionsFailed
		record.UploadsAttempted = run.resumed.UploadsAttempted
		failed, err := p.ledger.FailedKeys(ctx, run.id)
		if err != nil {
			p.ledgerWarning(ctx, "count failed keys", err)
		}
		record.UploadsFailed = len(failed)
	}
	if err := p.ledger.FinishRun(ctx, run.id, record); err != nil {
		p.ledgerWarning(ctx, "finish run", err)
	}
}

func (p *Pipeline) ledgerWarning(ctx context.Context, op string, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, p.logger), "ledger write failed", "ledger_write_failed",
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldImpact, "run history incomplete; --only-failed may miss keys"),
	)
}
