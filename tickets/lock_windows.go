//go:build windows

package tickets

import (
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/sys/windows"
)

func lockFile(f *os.File) error {
	err := windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, new(windows.Overlapped))
	if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
		return errLockBusy
	}
	return err
}

func unlockFile(f *os.File) error {
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, new(windows.Overlapped))
}

// Open files can't be removed, so the lock file goes after it is closed.
// Removal fails while another writer has it open; that writer removes it.
func releaseLock(l *fileLock) error {
	err := errors.Join(unlockFile(l.f), l.f.Close())
	if rerr := os.Remove(l.path); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
		log.Debug("Lock file left behind", "path", l.path, "error", rerr)
	}
	return err
}
