package progress

import (
	"sync/atomic"
	"time"
)

// Record is the latest progress reported by one rendition's encoder.
type Record struct {
	Rendition  string
	Percent    float64
	Frames     int64
	CurrentFPS float64
	Timemark   string
}

// State is the lifecycle position of one rendition.
type State int

const (
	StatePending State = iota
	StateRunning
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Entry is a rendition's slot contents as seen by a reader.
type Entry struct {
	Record
	State     State
	Err       error
	UpdatedAt time.Time
}

// Aggregator holds the most recent Entry for each rendition.
type Aggregator struct {
	order []string
	slots map[string]*atomic.Pointer[Entry]
	now   func() time.Time
}

// NewAggregator creates one slot per name. The name set cannot change later.
func NewAggregator(names []string) *Aggregator {
	a := &Aggregator{
		order: append([]string(nil), names...),
		slots: make(map[string]*atomic.Pointer[Entry], len(names)),
		now:   time.Now,
	}
	for _, name := range names {
		slot := &atomic.Pointer[Entry]{}
		slot.Store(&Entry{Record: Record{Rendition: name, Percent: -1}, State: StatePending})
		a.slots[name] = slot
	}
	return a
}

// Update replaces the rendition's record. Records for unknown renditions and
// updates after a terminal state are dropped.
func (a *Aggregator) Update(rec Record) {
	if a == nil {
		return
	}
	slot, ok := a.slots[rec.Rendition]
	if !ok {
		return
	}
	prev := slot.Load()
	if prev.State == StateCompleted || prev.State == StateFailed {
		return
	}
	slot.Store(&Entry{Record: rec, State: StateRunning, UpdatedAt: a.now()})
}

// Finish marks the rendition terminal. The last record is retained, so a job
// that failed part-way keeps its partial percentage.
func (a *Aggregator) Finish(name string, err error) {
	if a == nil {
		return
	}
	slot, ok := a.slots[name]
	if !ok {
		return
	}
	next := *slot.Load()
	next.UpdatedAt = a.now()
	next.Err = err
	if err != nil {
		next.State = StateFailed
	} else {
		next.State = StateCompleted
		next.Percent = 100
	}
	slot.Store(&next)
}

// Snapshot returns every slot in construction order.
func (a *Aggregator) Snapshot() []Entry {
	if a == nil {
		return nil
	}
	out := make([]Entry, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, *a.slots[name].Load())
	}
	return out
}

// Names returns the rendition names in construction order.
func (a *Aggregator) Names() []string {
	if a == nil {
		return nil
	}
	return append([]string(nil), a.order...)
}

// Done reports whether every rendition reached a terminal state.
func (a *Aggregator) Done() bool {
	for _, entry := range a.Snapshot() {
		if entry.State != StateCompleted && entry.State != StateFailed {
			return false
		}
	}
	return true
}
