// Package manifest assembles the top-level HLS playlist that points players
// at each rendition. Per-rendition playlists are written by the encoder and
// treated as opaque files here.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hlsladder/internal/fileutil"
	"hlsladder/internal/rendition"
	"hlsladder/internal/services"
)

// FileName is the top-level playlist name, matching the per-rendition name.
const FileName = "master.m3u8"

const phaseManifest = "manifest"

// BuildMaster renders the top-level playlist for ladder. The output depends
// only on ladder order and each spec's bandwidth, resolution, and URL.
func BuildMaster(ladder rendition.Ladder) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, spec := range ladder {
		b.WriteString("#EXT-X-STREAM-INF:BANDWIDTH=")
		b.WriteString(strconv.Itoa(spec.Bandwidth))
		b.WriteString(",RESOLUTION=")
		b.WriteString(spec.Resolution())
		b.WriteByte('\n')
		b.WriteString(spec.PublishBaseURL)
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteMaster atomically writes the top-level playlist into lessonDir and
// returns its path.
func WriteMaster(lessonDir string, ladder rendition.Ladder) (string, error) {
	path := filepath.Join(lessonDir, FileName)
	if err := fileutil.WriteFileAtomic(path, []byte(BuildMaster(ladder)), 0o644); err != nil {
		return "", services.Wrap(services.ErrFilesystem, phaseManifest, "write master", path, err)
	}
	return path, nil
}

// CheckRenditions verifies every rendition directory holds its playlist. It
// never parses the playlists.
func CheckRenditions(ladder rendition.Ladder, playlistName string) error {
	var missing []string
	for _, spec := range ladder {
		info, err := os.Stat(filepath.Join(spec.OutputDir, playlistName))
		if err != nil || info.IsDir() {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return services.Wrap(services.ErrValidation, phaseManifest, "check renditions",
			fmt.Sprintf("missing %s for %s", playlistName, strings.Join(missing, ", ")), nil)
	}
	return nil
}
