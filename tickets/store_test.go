package tickets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "p4tickets.txt"))
	s.SetLockRetry(5, 10*time.Millisecond)
	return s
}

// storeContract runs the behavior every Store shares.
func storeContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("empty", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Get("1666", "bob")
		require.NoError(t, err)
		assert.Nil(t, got)
		all, err := s.List()
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("round trip", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(Ticket{ServerAddress: "1666", UserName: "bob", Value: "AAA"}))

		got, err := s.Get("localhost:1666", "bob")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "AAA", got.Value)
		assert.Equal(t, "localhost:1666", got.ServerAddress)
	})

	t.Run("replace keeps one entry", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "bob", Value: "old"}))
		require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "alice", Value: "A"}))
		require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "bob", Value: "new"}))

		all, err := s.List()
		require.NoError(t, err)
		assert.Equal(t, []Ticket{
			{ServerAddress: "p4:1666", UserName: "bob", Value: "new"},
			{ServerAddress: "p4:1666", UserName: "alice", Value: "A"},
		}, all)
	})

	t.Run("blank value deletes", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "bob", Value: "X"}))
		require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "bob", Value: ""}))

		got, err := s.Get("p4:1666", "bob")
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "carol", Value: "C"}))
		require.NoError(t, s.Delete("p4:1666", "carol"))
		all, err := s.List()
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("blank user finds any", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "bob", Value: "B"}))
		require.NoError(t, s.Save(Ticket{ServerAddress: "other:1666", UserName: "alice", Value: "A"}))

		got, err := s.Get("other:1666", "")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "alice", got.UserName)
	})

	t.Run("invalid tickets rejected", func(t *testing.T) {
		s := newStore(t)
		assert.ErrorIs(t, s.Save(Ticket{ServerAddress: "", UserName: "bob", Value: "B"}), ErrInvalidTicket)
		assert.ErrorIs(t, s.Delete("p4:1666", ""), ErrInvalidTicket)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(*testing.T) Store { return NewMemoryStore() })
}

func TestFileStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return newTestFileStore(t) })
}

func TestFileStoreKeepsForeignLines(t *testing.T) {
	s := newTestFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o700))
	original := "# written by another client\np4:1666=bob:OLD\nbroken line\np4:1666=bob:DUPLICATE\nq:1=zed:Z\n"
	require.NoError(t, os.WriteFile(s.Path(), []byte(original), 0o600))

	require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "bob", Value: "NEW"}))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "# written by another client\np4:1666=bob:NEW\nbroken line\nq:1=zed:Z\n", string(data))

	_, err = os.Stat(s.LockPath())
	assert.True(t, errors.Is(err, os.ErrNotExist), "lock file must be removed after a write")
}

func TestFileStoreRestrictsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mode bits are not meaningful on windows")
	}
	s := newTestFileStore(t)
	require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "bob", Value: "X"}))
	require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "alice", Value: "Y"}))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o400), info.Mode().Perm())
}

func TestFileStoreLockTimeout(t *testing.T) {
	s := newTestFileStore(t)
	s.SetLockRetry(3, 5*time.Millisecond)
	require.NoError(t, s.ensureFile())

	held, err := tryLock(s.LockPath())
	require.NoError(t, err)

	err = s.Save(Ticket{ServerAddress: "p4:1666", UserName: "bob", Value: "X"})
	require.ErrorIs(t, err, ErrLockTimeout)
	var lockErr *LockError
	require.ErrorAs(t, err, &lockErr)
	assert.Equal(t, s.LockPath(), lockErr.Path)
	assert.Equal(t, uint(3), lockErr.Tries)
	assert.Contains(t, err.Error(), s.LockPath())

	require.NoError(t, held.release())
	require.NoError(t, s.Save(Ticket{ServerAddress: "p4:1666", UserName: "bob", Value: "X"}))
}

func TestFileStoreWaitsForLock(t *testing.T) {
	s := newTestFileStore(t)
	s.SetLockRetry(200, 5*time.Millisecond)
	require.NoError(t, s.ensureFile())

	held, err := tryLock(s.LockPath())
	require.NoError(t, err)

	var g errgroup.Group
	g.Go(func() error {
		return s.Save(Ticket{ServerAddress: "p4:1666", UserName: "bob", Value: "X"})
	})
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, held.release())
	require.NoError(t, g.Wait())

	got, err := s.Get("p4:1666", "bob")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestFileStoreConcurrentWriters(t *testing.T) {
	s := newTestFileStore(t)
	s.SetLockRetry(DefaultLockTries, 5*time.Millisecond)

	const writers = 16
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			for round := 0; round < 3; round++ {
				err := s.Save(Ticket{
					ServerAddress: "p4:1666",
					UserName:      fmt.Sprintf("user%02d", i),
					Value:         fmt.Sprintf("secret-%d", round),
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Len(t, lines, writers)

	seen := make(map[string]bool)
	for _, line := range lines {
		tk, ok := ParseLine(line)
		require.True(t, ok, "line %q", line)
		assert.False(t, seen[tk.Key()], "duplicate key %s", tk.Key())
		seen[tk.Key()] = true
		assert.Equal(t, "secret-2", tk.Value)
	}
}

func TestTrustStore(t *testing.T) {
	trust, fs := NewTrustFileStore(filepath.Join(t.TempDir(), "p4trust.txt"))
	fs.SetLockRetry(5, time.Millisecond)

	require.NoError(t, trust.Trust("10.0.0.1:1666", "AB:CD:EF", false))
	require.NoError(t, trust.Trust("10.0.0.1:1666", "12:34", true))

	fp, err := trust.Fingerprint("10.0.0.1:1666", false)
	require.NoError(t, err)
	assert.Equal(t, "AB:CD:EF", fp)

	require.NoError(t, trust.Forget("10.0.0.1:1666", true))
	fp, err = trust.Fingerprint("10.0.0.1:1666", true)
	require.NoError(t, err)
	assert.Empty(t, fp)

	all, err := trust.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDefaultPathsHonorEnvironment(t *testing.T) {
	t.Setenv(EnvTickets, "/tmp/custom-tickets")
	t.Setenv(EnvTrust, "/tmp/custom-trust")

	p, err := DefaultTicketPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-tickets", p)

	p, err = DefaultTrustPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-trust", p)
}
