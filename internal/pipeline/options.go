package pipeline

import (
	"log/slog"

	"hlsladder/internal/ffmpeg"
	"hlsladder/internal/ledger"
	"hlsladder/internal/metrics"
	"hlsladder/internal/progress"
	"hlsladder/internal/rendition"
	"hlsladder/internal/storage"
)

// DisplayFactory builds a progress display for a ladder.
type DisplayFactory func(ladder rendition.Ladder) progress.Display

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithEngine replaces the ffmpeg CLI engine.
func WithEngine(engine ffmpeg.Engine) Option {
	return func(p *Pipeline) { p.engine = engine }
}

// WithStore replaces the configured object store.
func WithStore(store storage.ObjectStore) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithLedger records runs in store. Without it, runs are not persisted and
// --only-failed publishing is unavailable.
func WithLedger(store *ledger.Store) Option {
	return func(p *Pipeline) { p.ledger = store }
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithDisplay overrides the progress display. The default logs sampled
// progress through the pipeline logger.
func WithDisplay(factory DisplayFactory) Option {
	return func(p *Pipeline) { p.display = factory }
}
