// Package transcode runs the rendition ladder for one lesson.
//
// Runner wraps a single engine invocation and always yields an Outcome.
// Batch owns the lesson's output tree for the duration of a run: it locks the
// output root, resets the tree, runs every rendition through a bounded pool,
// and gates downstream work on every outcome being Completed.
package transcode
