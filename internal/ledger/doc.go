// Package ledger persists run history in SQLite: one row per run, the
// per-rendition transcode outcomes, and the per-artifact publish outcomes.
//
// The ledger is what lets `publish --only-failed` retry exactly the keys a
// previous run could not upload, and what `status` renders. Schema changes
// bump schemaVersion in schema.go; users delete the database to adopt a new
// schema.
package ledger
