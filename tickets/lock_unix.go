//go:build unix

package tickets

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func lockFile(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
		return errLockBusy
	}
	return err
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// The lock file is removed while still locked, so a waiter that opened it
// earlier sees an unlinked file and tries again.
func releaseLock(l *fileLock) error {
	return errors.Join(os.Remove(l.path), unlockFile(l.f), l.f.Close())
}
