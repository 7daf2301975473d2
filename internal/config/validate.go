package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	renditionNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	audioBitratePattern  = regexp.MustCompile(`^[0-9]+[kKmM]?$`)
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateRenditions(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranscode() error {
	if c.Transcode.Concurrency < 0 {
		return errors.New("transcode.concurrency must be >= 0")
	}
	if c.Transcode.JobTimeoutSeconds < 0 {
		return errors.New("transcode.job_timeout_seconds must be >= 0")
	}
	if c.Transcode.ListSize < 0 {
		return errors.New("transcode.list_size must be >= 0")
	}
	switch c.Transcode.PlaylistType {
	case "vod", "event":
	default:
		return fmt.Errorf("transcode.playlist_type: unsupported value %q", c.Transcode.PlaylistType)
	}
	if strings.ContainsAny(c.Transcode.PlaylistName, `/\`) {
		return errors.New("transcode.playlist_name must be a bare file name")
	}
	return nil
}

func (c *Config) validateRenditions() error {
	if len(c.Renditions) == 0 {
		return errors.New("at least one [[renditions]] entry is required")
	}
	seen := make(map[string]struct{}, len(c.Renditions))
	for i, r := range c.Renditions {
		if !renditionNamePattern.MatchString(r.Name) {
			return fmt.Errorf("renditions[%d].name %q must be lowercase letters, digits, '-' or '_'", i, r.Name)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("renditions[%d].name %q is declared more than once", i, r.Name)
		}
		seen[r.Name] = struct{}{}
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("renditions[%d] (%s): width and height must be positive", i, r.Name)
		}
		if r.Bandwidth <= 0 {
			return fmt.Errorf("renditions[%d] (%s): bandwidth must be positive", i, r.Name)
		}
		if !audioBitratePattern.MatchString(r.AudioBitrate) {
			return fmt.Errorf("renditions[%d] (%s): audio_bitrate %q is not a bitrate like 128k", i, r.Name, r.AudioBitrate)
		}
	}
	return nil
}

func (c *Config) validatePublish() error {
	base := c.Publish.BaseURL
	if base == "" {
		return fmt.Errorf("publish.base_url is required (or set %s)", envPublicBaseURL)
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("publish.base_url %q must be an http(s) URL", base)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendS3:
		// Endpoint may be empty to target AWS itself.
		return nil
	case StorageBackendFilesystem:
		if c.Storage.FilesystemRoot == "" {
			return errors.New("storage.filesystem_root must be set when storage.backend is \"filesystem\"")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend: unsupported value %q", c.Storage.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
