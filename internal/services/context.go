package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	lessonKey    contextKey = "lesson"
	phaseKey     contextKey = "phase"
	renditionKey contextKey = "rendition"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the pipeline run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithLesson annotates context with the "<course>/<lesson>" prefix being processed.
func WithLesson(ctx context.Context, lesson string) context.Context {
	if lesson == "" {
		return ctx
	}
	return context.WithValue(ctx, lessonKey, lesson)
}

// LessonFromContext returns the lesson prefix if present.
func LessonFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(lessonKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPhase annotates context with the pipeline phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	if phase == "" {
		return ctx
	}
	return context.WithValue(ctx, phaseKey, phase)
}

// PhaseFromContext returns the phase name if present.
func PhaseFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(phaseKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRendition annotates context with the rendition a job works on.
func WithRendition(ctx context.Context, name string) context.Context {
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, renditionKey, name)
}

// RenditionFromContext returns the rendition name if present.
func RenditionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(renditionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
