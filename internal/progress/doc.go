// Package progress collects per-rendition encode progress from concurrently
// running jobs and renders it.
//
// The Aggregator owns one slot per rendition, fixed at construction; each job
// writes only its own slot, so concurrent writers never contend. Displays read
// snapshots on a ticker and never influence job control flow.
package progress
