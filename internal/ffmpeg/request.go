package ffmpeg

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Request is the fixed parameter set for one rendition encode.
type Request struct {
	Input     string
	OutputDir string

	Width        int
	Height       int
	AudioBitrate string

	VideoCodec string
	Preset     string
	// Quality is the constant-quality target; 0 leaves the encoder default.
	Quality int

	SegmentSeconds int
	// ListSize of 0 keeps every segment in the playlist.
	ListSize       int
	PlaylistType   string
	BaseURL        string
	SegmentPattern string
	PlaylistName   string
}

// Validate reports missing or nonsensical parameters before a process starts.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Input) == "":
		return errors.New("input path required")
	case strings.TrimSpace(r.OutputDir) == "":
		return errors.New("output directory required")
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("invalid resolution %dx%d", r.Width, r.Height)
	case strings.TrimSpace(r.AudioBitrate) == "":
		return errors.New("audio bitrate required")
	case r.SegmentSeconds <= 0:
		return fmt.Errorf("invalid segment duration %d", r.SegmentSeconds)
	case strings.TrimSpace(r.PlaylistName) == "":
		return errors.New("playlist name required")
	case strings.TrimSpace(r.SegmentPattern) == "":
		return errors.New("segment pattern required")
	}
	return nil
}

// PlaylistPath is the per-rendition manifest the encoder writes.
func (r Request) PlaylistPath() string {
	return filepath.Join(r.OutputDir, r.PlaylistName)
}

// BuildArgs returns the ffmpeg argument list for r, excluding the binary.
func BuildArgs(r Request) []string {
	args := []string{
		"-hide_banner",
		"-y",
		"-nostats",
		"-progress", "pipe:1",
		"-i", r.Input,
		"-vf", fmt.Sprintf("scale=w=%d:h=%d:force_original_aspect_ratio=decrease", r.Width, r.Height),
		"-c:v", r.VideoCodec,
	}
	if r.Preset != "" {
		args = append(args, "-preset", r.Preset)
	}
	if r.Quality > 0 {
		args = append(args, qualityFlag(r.VideoCodec), strconv.Itoa(r.Quality))
	}
	args = append(args,
		"-c:a", "aac",
		"-b:a", r.AudioBitrate,
		"-f", "hls",
		"-hls_time", strconv.Itoa(r.SegmentSeconds),
		"-hls_list_size", strconv.Itoa(r.ListSize),
	)
	if r.PlaylistType != "" {
		args = append(args, "-hls_playlist_type", r.PlaylistType)
	}
	if r.BaseURL != "" {
		args = append(args, "-hls_base_url", r.BaseURL)
	}
	args = append(args,
		"-hls_segment_filename", filepath.Join(r.OutputDir, r.SegmentPattern),
		r.PlaylistPath(),
	)
	return args
}

// qualityFlag picks the constant-quality option understood by the codec.
func qualityFlag(codec string) string {
	codec = strings.ToLower(codec)
	switch {
	case strings.HasSuffix(codec, "_nvenc"):
		return "-cq:v"
	case strings.HasSuffix(codec, "_qsv"), strings.HasSuffix(codec, "_vaapi"):
		return "-global_quality"
	default:
		return "-crf"
	}
}
