package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	envAccessKey     = "HLSLADDER_S3_ACCESS_KEY"
	envSecretKey     = "HLSLADDER_S3_SECRET_KEY"
	envEndpoint      = "HLSLADDER_S3_ENDPOINT"
	envPublicBaseURL = "HLSLADDER_PUBLIC_BASE_URL"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSource()
	c.normalizeTranscode()
	c.normalizeRenditions()
	c.normalizePublish()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputRoot) == "" {
		c.Paths.OutputRoot = defaultOutputRoot
	}
	if c.Paths.OutputRoot, err = expandPath(c.Paths.OutputRoot); err != nil {
		return fmt.Errorf("paths.output_root: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.LedgerPath, err = expandPath(strings.TrimSpace(c.Paths.LedgerPath)); err != nil {
		return fmt.Errorf("paths.ledger_path: %w", err)
	}
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeSource() {
	c.Source.VideoDir = strings.TrimSpace(c.Source.VideoDir)
	if c.Source.VideoDir == "" {
		c.Source.VideoDir = defaultVideoDir
	}
	if expanded, err := expandPath(c.Source.VideoDir); err == nil {
		c.Source.VideoDir = expanded
	}
	c.Source.Extension = strings.TrimSpace(c.Source.Extension)
	if c.Source.Extension == "" {
		c.Source.Extension = defaultVideoExtension
	}
	if !strings.HasPrefix(c.Source.Extension, ".") {
		c.Source.Extension = "." + c.Source.Extension
	}
}

func (c *Config) normalizeTranscode() {
	t := &c.Transcode
	t.FFmpegBinary = strings.TrimSpace(t.FFmpegBinary)
	if t.FFmpegBinary == "" {
		t.FFmpegBinary = defaultFFmpegBinary
	}
	t.FFprobeBinary = strings.TrimSpace(t.FFprobeBinary)
	if t.FFprobeBinary == "" {
		t.FFprobeBinary = defaultFFprobeBinary
	}
	t.VideoCodec = strings.TrimSpace(t.VideoCodec)
	if t.VideoCodec == "" {
		t.VideoCodec = defaultVideoCodec
	}
	t.Preset = strings.TrimSpace(t.Preset)
	if t.SegmentSeconds <= 0 {
		t.SegmentSeconds = defaultSegmentSeconds
	}
	t.PlaylistType = strings.ToLower(strings.TrimSpace(t.PlaylistType))
	if t.PlaylistType == "" {
		t.PlaylistType = defaultPlaylistType
	}
	t.SegmentPattern = strings.TrimSpace(t.SegmentPattern)
	if t.SegmentPattern == "" {
		t.SegmentPattern = defaultSegmentPattern
	}
	t.PlaylistName = strings.TrimSpace(t.PlaylistName)
	if t.PlaylistName == "" {
		t.PlaylistName = defaultPlaylistName
	}
}

func (c *Config) normalizeRenditions() {
	if len(c.Renditions) == 0 {
		c.Renditions = DefaultRenditions()
		return
	}
	for i := range c.Renditions {
		c.Renditions[i].Name = strings.ToLower(strings.TrimSpace(c.Renditions[i].Name))
		c.Renditions[i].AudioBitrate = strings.TrimSpace(c.Renditions[i].AudioBitrate)
	}
}

func (c *Config) normalizePublish() {
	if value, ok := os.LookupEnv(envPublicBaseURL); ok && strings.TrimSpace(value) != "" {
		c.Publish.BaseURL = value
	}
	c.Publish.BaseURL = strings.TrimRight(strings.TrimSpace(c.Publish.BaseURL), "/")
	c.Publish.Bucket = strings.TrimSpace(c.Publish.Bucket)
	if c.Publish.Bucket == "" {
		c.Publish.Bucket = defaultBucket
	}
	if c.Publish.Concurrency < 0 {
		c.Publish.Concurrency = 0
	}
	c.Publish.SegmentExtension = strings.TrimSpace(c.Publish.SegmentExtension)
	if c.Publish.SegmentExtension == "" {
		c.Publish.SegmentExtension = defaultSegmentExtension
	}
	if !strings.HasPrefix(c.Publish.SegmentExtension, ".") {
		c.Publish.SegmentExtension = "." + c.Publish.SegmentExtension
	}
}

func (c *Config) normalizeStorage() error {
	s := &c.Storage
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = defaultStorageBackend
	}
	if s.Endpoint == "" {
		if value, ok := os.LookupEnv(envEndpoint); ok {
			s.Endpoint = value
		}
	}
	s.Endpoint = strings.TrimSpace(s.Endpoint)
	if s.AccessKey == "" {
		if value, ok := os.LookupEnv(envAccessKey); ok {
			s.AccessKey = value
		}
	}
	s.AccessKey = strings.TrimSpace(s.AccessKey)
	if s.SecretKey == "" {
		if value, ok := os.LookupEnv(envSecretKey); ok {
			s.SecretKey = value
		}
	}
	s.SecretKey = strings.TrimSpace(s.SecretKey)
	s.Region = strings.TrimSpace(s.Region)
	if s.Region == "" {
		s.Region = defaultStorageRegion
	}
	if s.RequestTimeoutSeconds <= 0 {
		s.RequestTimeoutSeconds = defaultStorageTimeoutSec
	}
	if strings.TrimSpace(s.FilesystemRoot) != "" {
		var err error
		if s.FilesystemRoot, err = expandPath(strings.TrimSpace(s.FilesystemRoot)); err != nil {
			return fmt.Errorf("storage.filesystem_root: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}
