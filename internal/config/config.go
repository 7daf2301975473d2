package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Storage backends understood by the publish phase.
const (
	StorageBackendS3         = "s3"
	StorageBackendFilesystem = "filesystem"
)

// Paths contains working directory configuration.
type Paths struct {
	OutputRoot string `toml:"output_root"`
	LogDir     string `toml:"log_dir"`
	LedgerPath string `toml:"ledger_path"`
	EnvFile    string `toml:"env_file"`
}

// Source describes where lesson videos are read from when no explicit input
// path is given: <video_dir>/<course>/<lesson><extension>.
type Source struct {
	VideoDir  string `toml:"video_dir"`
	Extension string `toml:"extension"`
}

// Transcode contains encoding engine parameters shared by every rendition.
type Transcode struct {
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	FFprobeBinary  string `toml:"ffprobe_binary"`
	VideoCodec     string `toml:"video_codec"`
	Preset         string `toml:"preset"`
	Quality        int    `toml:"quality"`
	SegmentSeconds int    `toml:"segment_seconds"`
	// ListSize of 0 keeps every segment in the per-rendition playlist.
	ListSize       int    `toml:"list_size"`
	PlaylistType   string `toml:"playlist_type"`
	SegmentPattern string `toml:"segment_pattern"`
	PlaylistName   string `toml:"playlist_name"`
	// Concurrency caps simultaneous engine processes; 0 runs every rendition at once.
	Concurrency int `toml:"concurrency"`
	// JobTimeoutSeconds bounds a single rendition encode; 0 disables the limit.
	JobTimeoutSeconds int `toml:"job_timeout_seconds"`
}

// Rendition is one rung of the quality ladder. Declaration order is manifest order.
type Rendition struct {
	Name         string `toml:"name"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	AudioBitrate string `toml:"audio_bitrate"`
	Bandwidth    int    `toml:"bandwidth"`
}

// Publish contains artifact publishing settings.
type Publish struct {
	BaseURL          string `toml:"base_url"`
	Bucket           string `toml:"bucket"`
	Concurrency      int    `toml:"concurrency"`
	MasterLast       bool   `toml:"master_last"`
	SegmentExtension string `toml:"segment_extension"`
}

// Storage contains object store connection settings.
type Storage struct {
	Backend               string `toml:"backend"`
	Endpoint              string `toml:"endpoint"`
	Region                string `toml:"region"`
	AccessKey             string `toml:"access_key"`
	SecretKey             string `toml:"secret_key"`
	UseSSL                bool   `toml:"use_ssl"`
	UsePathStyle          bool   `toml:"use_path_style"`
	FilesystemRoot        string `toml:"filesystem_root"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for run metrics export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Config encapsulates all configuration values for hlsladder.
//
// Configuration sections by subsystem:
//   - Paths: output tree, logs, publish ledger, .env location
//   - Source: lesson video lookup
//   - Transcode: ffmpeg parameters and job pool sizing
//   - Renditions: the ordered quality ladder
//   - Publish: public base URL, bucket, upload pool sizing
//   - Storage: S3/MinIO or filesystem backend
//   - Logging: log format and level
//   - Metrics: Prometheus textfile export
type Config struct {
	Paths      Paths       `toml:"paths"`
	Source     Source      `toml:"source"`
	Transcode  Transcode   `toml:"transcode"`
	Renditions []Rendition `toml:"renditions"`
	Publish    Publish     `toml:"publish"`
	Storage    Storage     `toml:"storage"`
	Logging    Logging     `toml:"logging"`
	Metrics    Metrics     `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hlsladder/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Renditions from the file replace the stock ladder rather than extend it.
		cfg.Renditions = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadEnvFile(cfg.Paths.EnvFile); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadEnvFile populates unset environment variables from a dotenv file.
// A missing file is not an error.
func loadEnvFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	expanded, err := expandPath(path)
	if err != nil {
		return fmt.Errorf("paths.env_file: %w", err)
	}
	if _, err := os.Stat(expanded); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(expanded); err != nil {
		return fmt.Errorf("load env file %s: %w", expanded, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hlsladder.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputRoot, c.Paths.LogDir}
	if c.Paths.LedgerPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.LedgerPath))
	}
	if c.Storage.Backend == StorageBackendFilesystem {
		dirs = append(dirs, c.Storage.FilesystemRoot)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JobTimeout returns the per-rendition encode limit, or zero when disabled.
func (c *Config) JobTimeout() time.Duration {
	if c.Transcode.JobTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Transcode.JobTimeoutSeconds) * time.Second
}

// StorageTimeout returns the per-request object store timeout.
func (c *Config) StorageTimeout() time.Duration {
	if c.Storage.RequestTimeoutSeconds <= 0 {
		return defaultStorageTimeoutSec * time.Second
	}
	return time.Duration(c.Storage.RequestTimeoutSeconds) * time.Second
}

// SourcePath returns the conventional input file for a lesson.
func (c *Config) SourcePath(course, lesson string) string {
	return filepath.Join(c.Source.VideoDir, course, lesson+c.Source.Extension)
}

// LessonOutputDir returns the working directory for one lesson's ladder.
func (c *Config) LessonOutputDir(course, lesson string) string {
	return filepath.Join(c.Paths.OutputRoot, course, lesson)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration text.
func SampleConfig() string {
	return sampleConfig
}
