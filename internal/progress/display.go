package progress

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"

	"hlsladder/internal/logging"
)

// DefaultInterval is how often displays sample the aggregator.
const DefaultInterval = 250 * time.Millisecond

// Display renders aggregator snapshots until its context is cancelled.
type Display interface {
	Render(entries []Entry)
	Close(entries []Entry)
}

// Watch samples agg every interval and feeds display until ctx ends, then
// renders the final state once more.
func Watch(ctx context.Context, agg *Aggregator, display Display, interval time.Duration) {
	if agg == nil || display == nil {
		return
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			display.Close(agg.Snapshot())
			return
		case <-ticker.C:
			display.Render(agg.Snapshot())
		}
	}
}

// TrackerDisplay draws one go-pretty progress bar per rendition.
type TrackerDisplay struct {
	writer   progress.Writer
	trackers map[string]*progress.Tracker
	labels   map[string]string
}

// NewTrackerDisplay creates bars for names, labelled by labels[name] when present.
func NewTrackerDisplay(out io.Writer, names []string, labels map[string]string) *TrackerDisplay {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(false)
	pw.SetTrackerLength(30)
	pw.SetTrackerPosition(progress.PositionRight)
	pw.SetUpdateFrequency(DefaultInterval / 2)
	pw.SetStyle(progress.StyleBlocks)
	pw.Style().Visibility.ETA = false
	pw.Style().Visibility.Speed = false
	pw.Style().Visibility.Time = true
	pw.Style().Options.PercentFormat = "%5.1f%%"

	d := &TrackerDisplay{
		writer:   pw,
		trackers: make(map[string]*progress.Tracker, len(names)),
		labels:   make(map[string]string, len(names)),
	}
	for _, name := range names {
		label := labels[name]
		if label == "" {
			label = name
		}
		d.labels[name] = label
		tracker := &progress.Tracker{Message: label, Total: 1000, Units: progress.UnitsDefault}
		d.trackers[name] = tracker
		pw.AppendTracker(tracker)
	}
	go pw.Render()
	return d
}

// Render moves each bar to its rendition's latest percentage.
func (d *TrackerDisplay) Render(entries []Entry) {
	for _, entry := range entries {
		tracker, ok := d.trackers[entry.Rendition]
		if !ok || tracker.IsDone() {
			continue
		}
		if entry.Percent >= 0 {
			tracker.SetValue(int64(entry.Percent * 10))
		}
		switch entry.State {
		case StateRunning:
			tracker.UpdateMessage(fmt.Sprintf("%s %s %.0ffps", d.labels[entry.Rendition], entry.Timemark, entry.CurrentFPS))
		case StateCompleted:
			tracker.UpdateMessage(d.labels[entry.Rendition])
			tracker.MarkAsDone()
		case StateFailed:
			tracker.UpdateMessage(d.labels[entry.Rendition] + " failed")
			tracker.MarkAsErrored()
		}
	}
}

// Close renders the terminal state and stops the writer.
func (d *TrackerDisplay) Close(entries []Entry) {
	d.Render(entries)
	for _, tracker := range d.trackers {
		if !tracker.IsDone() {
			tracker.MarkAsErrored()
		}
	}
	// Give the render loop one cycle to draw the final frame.
	time.Sleep(DefaultInterval)
	d.writer.Stop()
}

// LogDisplay writes sampled progress lines through a logger, for non-TTY output.
type LogDisplay struct {
	logger   *slog.Logger
	sampler  *logging.ProgressSampler
	known    map[string]bool
	reported map[string]State
}

// NewLogDisplay logs at most one line per 5% bucket per rendition.
func NewLogDisplay(logger *slog.Logger, names []string) *LogDisplay {
	d := &LogDisplay{
		logger:   logging.NewComponentLogger(logger, "progress"),
		sampler:  logging.NewProgressSampler(5),
		known:    make(map[string]bool, len(names)),
		reported: make(map[string]State, len(names)),
	}
	for _, name := range names {
		d.known[name] = true
	}
	return d
}

// Render logs entries whose percentage crossed a bucket since the last call.
func (d *LogDisplay) Render(entries []Entry) {
	for _, entry := range entries {
		if !d.known[entry.Rendition] || entry.State == StatePending || d.reported[entry.Rendition] > StateRunning {
			continue
		}
		switch entry.State {
		case StateRunning:
			if !d.sampler.ShouldLog(entry.Rendition, entry.Percent) {
				continue
			}
			d.logger.Info("encode progress",
				logging.Rendition(entry.Rendition),
				logging.Float64(logging.FieldProgressPercent, roundPercent(entry.Percent)),
				logging.Int64("frames", entry.Frames),
				logging.Float64("fps", entry.CurrentFPS),
				logging.String("timemark", entry.Timemark),
			)
		case StateCompleted, StateFailed:
			d.logger.Info("encode finished",
				logging.Rendition(entry.Rendition),
				logging.String("status", entry.State.String()),
				logging.Float64(logging.FieldProgressPercent, roundPercent(entry.Percent)),
			)
		}
		d.reported[entry.Rendition] = entry.State
	}
}

// Close logs any terminal states not yet reported.
func (d *LogDisplay) Close(entries []Entry) {
	d.Render(entries)
}

func roundPercent(p float64) float64 {
	if p < 0 {
		return -1
	}
	return float64(int(p*10)) / 10
}
