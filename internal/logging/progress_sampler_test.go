package logging

import "testing"

func TestNewProgressSamplerDefaultsBucketSize(t *testing.T) {
	for _, size := range []float64{0, -1} {
		if s := NewProgressSampler(size); s.bucketSize != 5 {
			t.Fatalf("bucketSize for %v = %v, want 5", size, s.bucketSize)
		}
	}
	if s := NewProgressSampler(10); s.bucketSize != 10 {
		t.Fatalf("bucketSize = %v, want 10", s.bucketSize)
	}
}

func TestProgressSamplerNilAlwaysLogs(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog("low", 50) {
		t.Fatal("nil sampler should always log")
	}
	s.Forget("low")
}

func TestProgressSamplerSequence(t *testing.T) {
	type step struct {
		key     string
		percent float64
		want    bool
	}
	tests := []struct {
		name   string
		bucket float64
		steps  []step
	}{
		{
			name:   "five percent buckets",
			bucket: 5,
			steps: []step{
				{"low", 0, true},
				{"low", 3, false},
				{"low", 5, true},
				{"low", 7.5, false},
				{"low", 10, true},
			},
		},
		{
			name:   "keys are independent",
			bucket: 5,
			steps: []step{
				{"low", 50, true},
				{"high", 10, true},
				{"low", 52, false},
				{"high", 15, true},
			},
		},
		{
			name:   "progress never moves backwards",
			bucket: 10,
			steps: []step{
				{"medium", 40, true},
				{"medium", 20, false},
				{"medium", 45, false},
				{"medium", 50, true},
			},
		},
		{
			name:   "unknown percent logs once",
			bucket: 5,
			steps: []step{
				{"low", -1, true},
				{"low", -1, false},
				{"low", 0, true},
			},
		},
		{
			name:   "values past completion share the last bucket",
			bucket: 5,
			steps: []step{
				{"high", 95, true},
				{"high", 100, true},
				{"high", 105, false},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewProgressSampler(tt.bucket)
			for i, st := range tt.steps {
				if got := s.ShouldLog(st.key, st.percent); got != st.want {
					t.Fatalf("step %d ShouldLog(%q, %v) = %v, want %v", i, st.key, st.percent, got, st.want)
				}
			}
		})
	}
}

func TestProgressSamplerForget(t *testing.T) {
	s := NewProgressSampler(5)
	s.ShouldLog("low", 50)
	if s.ShouldLog("low", 50) {
		t.Fatal("same bucket should not log twice")
	}
	s.Forget("low")
	if !s.ShouldLog("low", 50) {
		t.Fatal("should log after Forget")
	}
}
