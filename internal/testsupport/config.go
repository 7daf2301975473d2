package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"hlsladder/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Publishing targets a filesystem mirror under the temp root so tests never
// need an object store.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputRoot = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LedgerPath = filepath.Join(base, "ledger.db")
	cfgVal.Paths.EnvFile = ""
	cfgVal.Source.VideoDir = filepath.Join(base, "videos")
	cfgVal.Transcode.VideoCodec = "libx264"
	cfgVal.Publish.BaseURL = "http://host/seg"
	cfgVal.Storage.Backend = config.StorageBackendFilesystem
	cfgVal.Storage.FilesystemRoot = filepath.Join(base, "mirror")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithLadder replaces the rendition ladder on the test config.
func WithLadder(renditions ...config.Rendition) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Renditions = append([]config.Rendition(nil), renditions...)
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and prepends them to PATH. If names is empty, ffmpeg and ffprobe are
// stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := binDir(b)
		for _, name := range names {
			WriteScript(b.t, filepath.Join(binDir, name), "exit 0\n")
		}
		prependPath(b.t, binDir)
	}
}

// WithFFmpegStub installs scripted ffmpeg and ffprobe binaries on PATH.
func WithFFmpegStub(stub FFmpegStub) ConfigOption {
	return func(b *configBuilder) {
		dir := binDir(b)
		stub.Install(b.t, dir)
		prependPath(b.t, dir)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputRoot)
}

func binDir(b *configBuilder) string {
	dir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	return dir
}

func prependPath(t testing.TB, dir string) {
	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}
