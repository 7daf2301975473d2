package ledger

import "time"

// RunStatus is the terminal or in-flight state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	// RunPartial means the batch succeeded but some uploads failed.
	RunPartial RunStatus = "partial"
	RunFailed  RunStatus = "failed"
)

// ArtifactStatus records whether an upload landed.
type ArtifactStatus string

const (
	ArtifactUploaded ArtifactStatus = "uploaded"
	ArtifactFailed   ArtifactStatus = "failed"
)

// Run is one invocation against a lesson.
type Run struct {
	ID               string
	Course           string
	Lesson           string
	InputPath        string
	Status           RunStatus
	ErrorMessage     string
	RenditionsTotal  int
	RenditionsFailed int
	UploadsAttempted int
	UploadsFailed    int
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Duration returns the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RenditionOutcome is the settled transcode result of one rendition.
type RenditionOutcome struct {
	Rendition string
	Status    string
	Cause     string
	Elapsed   time.Duration
}

// Artifact is the publish outcome of one object key.
type Artifact struct {
	Key          string
	Bucket       string
	LocalPath    string
	Status       ArtifactStatus
	ErrorMessage string
	Bytes        int64
	UpdatedAt    time.Time
}

// Summary carries the counters written when a run finishes.
type Summary struct {
	Status           RunStatus
	ErrorMessage     string
	RenditionsTotal  int
	RenditionsFailed int
	UploadsAttempted int
	UploadsFailed    int
}
