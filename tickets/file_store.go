package tickets

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"
	"github.com/charmbracelet/log"
	"github.com/natefinch/atomic"
)

// Lock retry defaults
const (
	DefaultLockTries = 100
	DefaultLockWait  = time.Second
)

// LockSuffix is appended to the store's path to name its lock file.
const LockSuffix = ".lck"

// ErrLockTimeout matches a *LockError.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// LockError reports that the lock file could not be locked within the
// retry budget.
type LockError struct {
	Path  string
	Tries uint
	Err   error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("could not lock %s after %d attempts: %v", e.Path, e.Tries, e.Err)
}

func (e *LockError) Unwrap() error { return e.Err }

func (e *LockError) Is(target error) bool { return target == ErrLockTimeout }

// writeMu serializes writers inside the process; the file lock only
// excludes other processes reliably.
var writeMu sync.Mutex

// FileStore keeps tickets in a line-per-ticket file shared with other
// clients. Reads never lock; writes lock a sidecar file and replace the
// whole ticket file.
type FileStore struct {
	path      string
	lockTries uint
	lockWait  time.Duration
	logger    *log.Logger
}

// NewFileStore creates a store over the ticket file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:      path,
		lockTries: DefaultLockTries,
		lockWait:  DefaultLockWait,
		logger:    log.Default().WithPrefix("tickets"),
	}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) LockPath() string { return s.path + LockSuffix }

// SetLockRetry sets how many times and how often the lock is tried.
func (s *FileStore) SetLockRetry(tries uint, wait time.Duration) {
	if tries > 0 {
		s.lockTries = tries
	}
	if wait >= 0 {
		s.lockWait = wait
	}
}

func (s *FileStore) SetLogger(logger *log.Logger) {
	s.logger = logger
}

func (s *FileStore) List() ([]Ticket, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	defer f.Close()

	tickets, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return tickets, nil
}

func (s *FileStore) Get(serverAddress, userName string) (*Ticket, error) {
	tickets, err := s.List()
	if err != nil {
		return nil, err
	}
	return find(tickets, serverAddress, userName), nil
}

func (s *FileStore) Delete(serverAddress, userName string) error {
	if userName == "" {
		return fmt.Errorf("%w: blank user name", ErrInvalidTicket)
	}
	return s.Save(Ticket{ServerAddress: serverAddress, UserName: userName})
}

// Save writes the ticket, replacing any stored under the same key. A blank
// Value removes the key.
func (s *FileStore) Save(t Ticket) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.ServerAddress = NormalizeAddress(t.ServerAddress)

	writeMu.Lock()
	defer writeMu.Unlock()

	if err := s.ensureFile(); err != nil {
		return err
	}

	lock, err := s.lock()
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.release(); err != nil {
			s.logger.Debug("Lock release", "path", s.LockPath(), "error", err)
		}
	}()

	if err := s.rewrite(t); err != nil {
		return err
	}
	if t.Value == "" {
		s.logger.Debug("Removed ticket", "key", t.Key())
	} else {
		s.logger.Debug("Saved ticket", "key", t.Key())
	}
	return nil
}

func (s *FileStore) ensureFile() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", s.path, err)
	}
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", s.path, err)
		}
		f.Close()
	}
	return nil
}

// lock takes the sidecar lock, waiting between attempts while another
// writer holds it.
func (s *FileStore) lock() (*fileLock, error) {
	path := s.LockPath()
	var held *fileLock
	var fatal, last error

	err := retry.Retry(func(attempt uint) error {
		l, err := tryLock(path)
		switch {
		case err == nil:
			held = l
			return nil
		case errors.Is(err, errLockBusy):
			last = err
			s.logger.Debug("Lock busy", "path", path, "attempt", attempt)
			return err
		default:
			fatal = err
			return nil
		}
	}, strategy.Limit(s.lockTries), strategy.Wait(s.lockWait))

	switch {
	case fatal != nil:
		return nil, fmt.Errorf("failed to lock %s: %w", path, fatal)
	case err != nil || held == nil:
		if last == nil {
			last = err
		}
		return nil, &LockError{Path: path, Tries: s.lockTries, Err: last}
	}
	return held, nil
}

// rewrite streams the ticket file into a temp file with the ticket's line
// replaced, then swaps the temp file in.
func (s *FileStore) rewrite(t Ticket) error {
	current, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	dir, base := filepath.Split(s.path)
	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", s.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	out := bufio.NewWriter(tmp)
	if err := replaceLine(bytes.NewReader(current), out, t); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := out.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}

	if err := makeWritable(s.path); err != nil {
		s.logger.Debug("Could not make writable", "path", s.path, "error", err)
	}
	if err := atomic.ReplaceFile(tmpName, s.path); err != nil {
		s.logger.Warn("Atomic replace failed, copying instead", "path", s.path, "error", err)
		if err := copyFile(tmpName, s.path); err != nil {
			return fmt.Errorf("failed to replace %s: %w", s.path, err)
		}
	}
	if err := restrictPermissions(s.path); err != nil {
		s.logger.Debug("Could not restrict permissions", "path", s.path, "error", err)
	}
	return nil
}

// replaceLine copies every line of in to out, except lines stored under
// t's key: the first becomes t's line (or is dropped for a blank Value),
// later ones are dropped. t's line is appended when no line matched.
func replaceLine(in io.Reader, out io.Writer, t Ticket) error {
	key := t.Key()
	replaced := false
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if existing, ok := ParseLine(line); ok && existing.Key() == key {
			if !replaced && t.Value != "" {
				if _, err := io.WriteString(out, t.Line()+"\n"); err != nil {
					return err
				}
			}
			replaced = true
			continue
		}
		if _, err := io.WriteString(out, line+"\n"); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if !replaced && t.Value != "" {
		if _, err := io.WriteString(out, t.Line()+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func makeWritable(path string) error {
	return os.Chmod(path, 0o600)
}
