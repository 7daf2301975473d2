package publish

import (
	"fmt"
	"time"
)

// UploadError records one failed upload.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Result is the settled outcome of one task.
type Result struct {
	Task    Task
	Err     error
	Bytes   int64
	Elapsed time.Duration
}

// Report holds one Result per attempted task, in enumeration order.
type Report struct {
	Results []Result
	Elapsed time.Duration
}

// Attempted returns the number of tasks that were issued.
func (r Report) Attempted() int {
	return len(r.Results)
}

// Failed returns the failed results.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// Succeeded returns the number of successful uploads.
func (r Report) Succeeded() int {
	return r.Attempted() - len(r.Failed())
}

// Bytes sums the size of successful uploads.
func (r Report) Bytes() int64 {
	var total int64
	for _, res := range r.Results {
		if res.Err == nil {
			total += res.Bytes
		}
	}
	return total
}

// Keys returns every attempted key in enumeration order.
func (r Report) Keys() []string {
	keys := make([]string, len(r.Results))
	for i, res := range r.Results {
		keys[i] = res.Task.Key
	}
	return keys
}

// FailedKeys returns the keys that failed to upload.
func (r Report) FailedKeys() []string {
	var keys []string
	for _, res := range r.Failed() {
		keys = append(keys, res.Task.Key)
	}
	return keys
}
