package tickets

import (
	"errors"
	"os"
)

var (
	errLockBusy = errors.New("lock held by another writer")

	// ErrLockUnsupported is returned on platforms without advisory file locks.
	ErrLockUnsupported = errors.New("file locking not supported on this platform")
)

// fileLock is an exclusive advisory lock on the sidecar lock file.
type fileLock struct {
	f    *os.File
	path string
}

// tryLock makes one attempt at the lock. errLockBusy means another writer
// holds it, or held it and removed the file while we waited on it.
func tryLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, err
	}

	held, herr := f.Stat()
	named, nerr := os.Stat(path)
	if herr != nil || nerr != nil || !os.SameFile(held, named) {
		unlockFile(f)
		f.Close()
		return nil, errLockBusy
	}
	return &fileLock{f: f, path: path}, nil
}

// release unlocks and removes the lock file.
func (l *fileLock) release() error {
	return releaseLock(l)
}
