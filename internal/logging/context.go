package logging

import (
	"context"
	"log/slog"

	"hlsladder/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one pipeline run across transcode, manifest, and publish.
	FieldRunID = "run_id"
	// FieldLesson is the "<course>/<lesson>" prefix being processed.
	FieldLesson = "lesson"
	// FieldPhase names the pipeline phase (prepare, transcode, manifest, publish).
	FieldPhase = "phase"
	// FieldRendition names the ladder rung a record belongs to.
	FieldRendition = "rendition"
	// FieldKey is the remote object key of a publish task.
	FieldKey = "key"
	// FieldEventType classifies a record for filtering (e.g. upload_failed).
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step after a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
	// FieldProgressPercent is the encode completion percentage.
	FieldProgressPercent = "progress_percent"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 4)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if lesson, ok := services.LessonFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldLesson, lesson))
	}
	if phase, ok := services.PhaseFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldPhase, phase))
	}
	if name, ok := services.RenditionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRendition, name))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	return logger.With(args...)
}
