package rendition

import (
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"hlsladder/internal/config"
	"hlsladder/internal/services"
)

// Spec describes one target rendition of a lesson.
type Spec struct {
	Name         string
	Width        int
	Height       int
	AudioBitrate string
	// Bandwidth is the static estimate advertised in the top-level manifest.
	Bandwidth int
	// OutputDir is where the engine writes this rendition's segments and playlist.
	OutputDir string
	// PublishBaseURL is the public URL of OutputDir, ending in "/".
	PublishBaseURL string
}

// Resolution returns the "<w>x<h>" label used by HLS RESOLUTION attributes.
func (s Spec) Resolution() string {
	return strconv.Itoa(s.Width) + "x" + strconv.Itoa(s.Height)
}

// Label returns a display name such as "Medium 640x480".
func (s Spec) Label() string {
	return cases.Title(language.Und).String(s.Name) + " " + s.Resolution()
}

// Ladder is an ordered set of specs.
type Ladder []Spec

// Build resolves configured renditions against a lesson's output directory and
// public base URL. The result preserves declaration order.
func Build(renditions []config.Rendition, lessonDir, lessonURL string) (Ladder, error) {
	ladder := make(Ladder, 0, len(renditions))
	for _, r := range renditions {
		ladder = append(ladder, Spec{
			Name:           r.Name,
			Width:          r.Width,
			Height:         r.Height,
			AudioBitrate:   r.AudioBitrate,
			Bandwidth:      r.Bandwidth,
			OutputDir:      filepath.Join(lessonDir, r.Name),
			PublishBaseURL: JoinURL(lessonURL, r.Name) + "/",
		})
	}
	if err := ladder.Validate(); err != nil {
		return nil, err
	}
	return ladder, nil
}

// FromConfig builds the ladder for one lesson using the configured output root
// and public base URL.
func FromConfig(cfg *config.Config, course, lesson string) (Ladder, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "prepare", "build ladder", "config is nil", nil)
	}
	return Build(cfg.Renditions, cfg.LessonOutputDir(course, lesson), LessonURL(cfg.Publish.BaseURL, course, lesson))
}

// LessonURL returns "<base>/<course>/<lesson>".
func LessonURL(base, course, lesson string) string {
	return JoinURL(base, course, lesson)
}

// JoinURL appends slash-separated parts to base without doubling separators.
func JoinURL(base string, parts ...string) string {
	trimmed := strings.TrimRight(base, "/")
	addition := path.Join(parts...)
	if addition == "." {
		addition = ""
	}
	addition = strings.TrimLeft(addition, "/")
	switch {
	case addition == "":
		return trimmed
	case trimmed == "":
		return "/" + addition
	default:
		return trimmed + "/" + addition
	}
}

// Validate checks that every spec is usable and names are unique.
func (l Ladder) Validate() error {
	seen := make(map[string]struct{}, len(l))
	for i, spec := range l {
		name := strings.TrimSpace(spec.Name)
		if name == "" || strings.ContainsAny(name, `/\`) {
			return services.Wrap(services.ErrConfiguration, "prepare", "validate ladder", fmt.Sprintf("rendition %d has invalid name %q", i, spec.Name), nil)
		}
		if _, dup := seen[name]; dup {
			return services.Wrap(services.ErrConfiguration, "prepare", "validate ladder", fmt.Sprintf("rendition %q declared twice", name), nil)
		}
		seen[name] = struct{}{}
		if spec.Width <= 0 || spec.Height <= 0 {
			return services.Wrap(services.ErrConfiguration, "prepare", "validate ladder", fmt.Sprintf("rendition %q has non-positive resolution %s", name, spec.Resolution()), nil)
		}
	}
	return nil
}

// Names returns rendition names in ladder order.
func (l Ladder) Names() []string {
	names := make([]string, len(l))
	for i, spec := range l {
		names[i] = spec.Name
	}
	return names
}
