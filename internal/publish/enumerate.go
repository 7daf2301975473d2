package publish

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"hlsladder/internal/config"
	"hlsladder/internal/manifest"
	"hlsladder/internal/rendition"
	"hlsladder/internal/services"
)

// Layout maps local artifacts to remote keys.
type Layout struct {
	Bucket           string
	Course           string
	Lesson           string
	PlaylistName     string
	SegmentExtension string
}

// LayoutFromConfig builds the layout for one lesson.
func LayoutFromConfig(cfg *config.Config, course, lesson string) Layout {
	return Layout{
		Bucket:           cfg.Publish.Bucket,
		Course:           course,
		Lesson:           lesson,
		PlaylistName:     cfg.Transcode.PlaylistName,
		SegmentExtension: cfg.Publish.SegmentExtension,
	}
}

// Prefix returns "<course>/<lesson>".
func (l Layout) Prefix() string {
	return path.Join(l.Course, l.Lesson)
}

// MasterKey returns the key of the top-level manifest.
func (l Layout) MasterKey() string {
	return path.Join(l.Prefix(), manifest.FileName)
}

// Key returns the remote key of a file inside a rendition directory.
func (l Layout) Key(renditionName, file string) string {
	return path.Join(l.Prefix(), renditionName, file)
}

// Task is one local file to upload.
type Task struct {
	LocalPath string
	Bucket    string
	Key       string
	// Master marks the top-level manifest.
	Master bool
}

// Enumerate snapshots the lesson directory into an ordered task list: the
// top-level manifest, each rendition's playlist, then each rendition's
// segments sorted by name. Files created after the snapshot are not
// published.
func Enumerate(lessonDir string, ladder rendition.Ladder, layout Layout) ([]Task, error) {
	playlist := layout.PlaylistName
	if playlist == "" {
		playlist = manifest.FileName
	}
	ext := strings.ToLower(layout.SegmentExtension)
	if ext == "" {
		ext = ".ts"
	}

	tasks := []Task{{
		LocalPath: filepath.Join(lessonDir, manifest.FileName),
		Bucket:    layout.Bucket,
		Key:       layout.MasterKey(),
		Master:    true,
	}}
	for _, spec := range ladder {
		tasks = append(tasks, Task{
			LocalPath: filepath.Join(spec.OutputDir, playlist),
			Bucket:    layout.Bucket,
			Key:       layout.Key(spec.Name, playlist),
		})
	}
	for _, spec := range ladder {
		segments, err := listSegments(spec.OutputDir, playlist, ext)
		if err != nil {
			return nil, services.Wrap(services.ErrFilesystem, "publish", "enumerate segments", spec.Name, err)
		}
		for _, name := range segments {
			tasks = append(tasks, Task{
				LocalPath: filepath.Join(spec.OutputDir, name),
				Bucket:    layout.Bucket,
				Key:       layout.Key(spec.Name, name),
			})
		}
	}
	return tasks, nil
}

func listSegments(dir, playlist, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == playlist || strings.ToLower(filepath.Ext(name)) != ext {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Filter keeps only the tasks whose key is in keys, preserving order.
func Filter(tasks []Task, keys []string) []Task {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	out := make([]Task, 0, len(keys))
	for _, t := range tasks {
		if _, ok := want[t.Key]; ok {
			out = append(out, t)
		}
	}
	return out
}
