// Package pipeline wires one lesson run end to end: transcode every
// rendition, gate on the batch, write the top-level manifest, publish the
// tree, and record the outcome in the ledger and metrics.
//
// Nothing is published unless every rendition completed. Upload failures do
// not fail the batch; they surface as services.ErrPartialPublish so the CLI
// can exit with a distinct status.
package pipeline
