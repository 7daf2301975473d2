// Package publish enumerates a lesson's output tree into upload tasks and
// pushes them to an object store.
//
// Every enumerated task is attempted exactly once. An upload failure is
// logged where it happens and recorded in the Report; it never cancels
// sibling uploads and never aborts the run. Callers inspect the Report to
// decide how to surface partial publishes.
package publish
