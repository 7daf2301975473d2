// Package ffmpeg drives the external encoder for a single HLS rendition.
//
// CLI runs ffmpeg with machine-readable progress on stdout, probes the input
// duration with ffprobe so progress can be expressed as a percentage, and
// keeps the tail of stderr so a failed encode reports what ffmpeg said
// instead of only its exit status.
package ffmpeg
