package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"hlsladder/internal/fileutil"
	"hlsladder/internal/services"
)

// FilesystemStore mirrors objects to <root>/<bucket>/<key>.
type FilesystemStore struct {
	root string
}

// NewFilesystemStore creates the root directory when missing.
func NewFilesystemStore(root string) (*FilesystemStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "open storage", "filesystem root is empty", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "publish", "create storage root", root, err)
	}
	return &FilesystemStore{root: root}, nil
}

// Root returns the mirror directory.
func (s *FilesystemStore) Root() string {
	return s.root
}

// PutObject copies localPath into the mirror, replacing any existing object.
func (s *FilesystemStore) PutObject(ctx context.Context, bucket, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleaned, err := cleanKey(key)
	if err != nil {
		return services.Wrap(services.ErrValidation, "publish", "put object", "", err)
	}
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return services.Wrap(services.ErrValidation, "publish", "put object", fmt.Sprintf("invalid bucket %q", bucket), nil)
	}
	dst := filepath.Join(s.root, bucket, filepath.FromSlash(cleaned))
	if _, err := fileutil.CopyFileAtomic(localPath, dst, 0o644); err != nil {
		return services.Wrap(services.ErrStorage, "publish", "put object", dst, err)
	}
	return nil
}

var _ ObjectStore = (*FilesystemStore)(nil)
