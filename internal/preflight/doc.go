// Package preflight provides readiness checks for the binaries, directories,
// and object store a run depends on.
//
// The CLI "check" command renders every result; "run" calls RunAll before
// starting a batch and refuses to start when a required check fails, so a
// missing encoder or unwritable output root is reported before the batch
// touches the lesson tree.
package preflight
