package storage

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"hlsladder/internal/config"
	"hlsladder/internal/services"
)

// ObjectStore uploads one local file under bucket/key.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key, localPath string) error
}

// New constructs the backend selected by cfg.Storage.Backend.
func New(ctx context.Context, cfg *config.Config) (ObjectStore, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "open storage", "config is nil", nil)
	}
	s := cfg.Storage
	switch s.Backend {
	case config.StorageBackendS3:
		return NewS3Store(ctx, S3Options{
			Endpoint:     s.Endpoint,
			Region:       s.Region,
			AccessKey:    s.AccessKey,
			SecretKey:    s.SecretKey,
			UseSSL:       s.UseSSL,
			UsePathStyle: s.UsePathStyle,
			Timeout:      cfg.StorageTimeout(),
		})
	case config.StorageBackendFilesystem:
		return NewFilesystemStore(s.FilesystemRoot)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "publish", "open storage", fmt.Sprintf("unknown backend %q", s.Backend), nil)
	}
}

// ContentType returns the media type served for an artifact.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".m4s":
		return "video/iso.segment"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// cleanKey rejects keys that would escape the bucket when mapped to a path.
func cleanKey(key string) (string, error) {
	trimmed := strings.TrimLeft(key, "/")
	cleaned := path.Clean(trimmed)
	if trimmed == "" || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}
