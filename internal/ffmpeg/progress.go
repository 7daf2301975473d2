package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// Progress is one sample of encoder state. Percent is negative when the input
// duration is unknown.
type Progress struct {
	Percent  float64
	Frames   int64
	FPS      float64
	Timemark string
	// Done is set on the final block ffmpeg emits before exiting cleanly.
	Done bool
}

// progressParser folds ffmpeg's "-progress" key=value stream into samples.
// Each block ends with a "progress=continue|end" line.
type progressParser struct {
	duration time.Duration
	current  Progress
}

func newProgressParser(duration time.Duration) *progressParser {
	return &progressParser{duration: duration, current: Progress{Percent: -1}}
}

// Feed consumes one line and returns a sample when a block completes.
func (p *progressParser) Feed(line string) (Progress, bool) {
	key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Progress{}, false
	}
	value = strings.TrimSpace(value)
	switch key {
	case "frame":
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			p.current.Frames = n
		}
	case "fps":
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			p.current.FPS = f
		}
	case "out_time_us", "out_time_ms":
		// ffmpeg reports both keys in microseconds.
		if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
			p.current.Percent = p.percent(time.Duration(us) * time.Microsecond)
		}
	case "out_time":
		if value != "N/A" {
			p.current.Timemark = value
		}
	case "progress":
		sample := p.current
		if value == "end" {
			sample.Done = true
			if p.duration > 0 {
				sample.Percent = 100
			}
		}
		return sample, true
	}
	return Progress{}, false
}

func (p *progressParser) percent(elapsed time.Duration) float64 {
	if p.duration <= 0 {
		return -1
	}
	pct := float64(elapsed) / float64(p.duration) * 100
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
