// Package services defines shared utilities consumed by the pipeline phases
// and the external integrations they drive.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, lesson identifiers, phase names, and
//     rendition names for logging.
//   - Structured error markers plus the Wrap helper that keep failures
//     classifiable (external tool, filesystem, storage, configuration) after
//     they have been annotated with phase context.
//
// Use these helpers when wiring new phase logic so error handling and
// observability stay uniform across the pipeline.
package services
