package manifest_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hlsladder/internal/config"
	"hlsladder/internal/manifest"
	"hlsladder/internal/rendition"
	"hlsladder/internal/services"
)

func twoStepLadder(t *testing.T, lessonDir string) rendition.Ladder {
	t.Helper()
	ladder, err := rendition.Build([]config.Rendition{
		{Name: "low", Width: 426, Height: 360, AudioBitrate: "96k", Bandwidth: 400000},
		{Name: "medium", Width: 640, Height: 480, AudioBitrate: "128k", Bandwidth: 800000},
	}, lessonDir, "http://host/seg/c1/l1/")
	if err != nil {
		t.Fatalf("build ladder: %v", err)
	}
	return ladder
}

func TestBuildMasterExactText(t *testing.T) {
	got := manifest.BuildMaster(twoStepLadder(t, "/out/c1/l1"))
	want := "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=400000,RESOLUTION=426x360\n" +
		"http://host/seg/c1/l1/low/\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x480\n" +
		"http://host/seg/c1/l1/medium/\n"
	if got != want {
		t.Fatalf("unexpected manifest:\n got %q\nwant %q", got, want)
	}
}

func TestBuildMasterIsIdempotentAndOrdered(t *testing.T) {
	cfg := config.Default()
	ladder, err := rendition.Build(cfg.Renditions, "/out", "http://host/seg")
	if err != nil {
		t.Fatal(err)
	}
	first := manifest.BuildMaster(ladder)
	if second := manifest.BuildMaster(ladder); first != second {
		t.Fatal("manifest must be byte-identical across builds")
	}
	lines := strings.Split(strings.TrimSuffix(first, "\n"), "\n")
	if len(lines) != 1+2*len(ladder) {
		t.Fatalf("expected %d lines, got %d", 1+2*len(ladder), len(lines))
	}
	for i, spec := range ladder {
		if !strings.Contains(lines[1+2*i], "RESOLUTION="+spec.Resolution()) {
			t.Fatalf("line %d out of order: %q", 1+2*i, lines[1+2*i])
		}
		if lines[2+2*i] != spec.PublishBaseURL {
			t.Fatalf("url line %d = %q, want %q", 2+2*i, lines[2+2*i], spec.PublishBaseURL)
		}
	}
}

func TestBuildMasterEmptyLadder(t *testing.T) {
	if got := manifest.BuildMaster(nil); got != "#EXTM3U\n" {
		t.Fatalf("unexpected empty manifest %q", got)
	}
}

func TestWriteMasterAndCheckRenditions(t *testing.T) {
	lessonDir := t.TempDir()
	ladder := twoStepLadder(t, lessonDir)

	err := manifest.CheckRenditions(ladder, "master.m3u8")
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "low, medium") {
		t.Fatalf("expected missing playlists for both renditions, got %v", err)
	}

	for _, spec := range ladder {
		if err := os.MkdirAll(spec.OutputDir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(spec.OutputDir, "master.m3u8"), []byte("#EXTM3U\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := manifest.CheckRenditions(ladder, "master.m3u8"); err != nil {
		t.Fatalf("CheckRenditions: %v", err)
	}

	path, err := manifest.WriteMaster(lessonDir, ladder)
	if err != nil {
		t.Fatalf("WriteMaster: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != manifest.BuildMaster(ladder) {
		t.Fatalf("written manifest differs from built text: %q", data)
	}
}
