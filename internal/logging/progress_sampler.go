package logging

import "sync"

// ProgressSampler thins per-key progress logging to one line per percentage
// bucket. Keys are independent; a rendition name is the usual key.
type ProgressSampler struct {
	mu         sync.Mutex
	bucketSize float64
	last       map[string]int
}

// NewProgressSampler returns a sampler with the given bucket width in
// percent. Non-positive widths fall back to 5.
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 5
	}
	return &ProgressSampler{bucketSize: bucketSize, last: make(map[string]int)}
}

// ShouldLog reports whether percent has reached a bucket above the last one
// logged for key. The first call for a key always logs. Negative percent
// means unknown and only logs on first sight.
func (s *ProgressSampler) ShouldLog(key string, percent float64) bool {
	if s == nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, seen := s.last[key]
	if percent < 0 {
		if !seen {
			s.last[key] = -1
		}
		return !seen
	}
	if percent > 100 {
		percent = 100
	}
	bucket := int(percent / s.bucketSize)
	if seen && bucket <= prev {
		return false
	}
	s.last[key] = bucket
	return true
}

// Forget drops the state for key so its next sample logs.
func (s *ProgressSampler) Forget(key string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.last, key)
	s.mu.Unlock()
}
