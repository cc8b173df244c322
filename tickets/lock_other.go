//go:build !unix && !windows

package tickets

import "os"

func lockFile(*os.File) error {
	return ErrLockUnsupported
}

func unlockFile(*os.File) error {
	return nil
}

func releaseLock(l *fileLock) error {
	l.f.Close()
	return os.Remove(l.path)
}
