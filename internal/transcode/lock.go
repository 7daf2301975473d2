package transcode

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"hlsladder/internal/services"
)

// LockFileName is created in the output root while a run owns it.
const LockFileName = ".lock"

// LockOutputRoot takes the exclusive lock on root without blocking. A root
// held by another process or another lock in this one fails with
// ErrFilesystem. The caller releases the lock with Unlock.
func LockOutputRoot(root string) (*flock.Flock, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFilesystem, phasePrepare, "create output root", root, err)
	}
	lock := flock.New(filepath.Join(root, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, phasePrepare, "acquire lock", lock.Path(), err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrFilesystem, phasePrepare, "acquire lock", fmt.Sprintf("output root %s is in use by another run", root), nil)
	}
	return lock, nil
}
