package integration

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/groboclown/p4-golang/tickets"
)

const (
	envHelper     = "P4GOLANG_TICKET_WRITER"
	envHelperFile = "P4GOLANG_TICKET_FILE"
	envHelperID   = "P4GOLANG_TICKET_WRITER_ID"

	writerProcesses = 6
	writesPerWriter = 20
)

// TestTicketWriterProcess is not a real test: it is the child process body
// for TestTicketFileProcessRace.
func TestTicketWriterProcess(t *testing.T) {
	if os.Getenv(envHelper) != "1" {
		t.Skip("helper process")
	}
	path := os.Getenv(envHelperFile)
	id, err := strconv.Atoi(os.Getenv(envHelperID))
	if err != nil {
		t.Fatalf("bad writer id: %v", err)
	}

	store := tickets.NewFileStore(path)
	store.SetLockRetry(2000, 5*time.Millisecond)
	for i := 0; i < writesPerWriter; i++ {
		// Each writer keeps one ticket of its own and fights over a shared one.
		own := tickets.Ticket{ServerAddress: "race:1666", UserName: fmt.Sprintf("writer%d", id), Value: fmt.Sprintf("v%d", i)}
		shared := tickets.Ticket{ServerAddress: "race:1666", UserName: "shared", Value: fmt.Sprintf("w%d-%d", id, i)}
		if err := store.Save(own); err != nil {
			t.Fatalf("writer %d save %d: %v", id, i, err)
		}
		if err := store.Save(shared); err != nil {
			t.Fatalf("writer %d shared save %d: %v", id, i, err)
		}
	}
}

// TestTicketFileProcessRace runs several processes writing one ticket file
// at once and checks the result is parseable and duplicate-free.
func TestTicketFileProcessRace(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping multi-process ticket test in short mode")
	}

	path := filepath.Join(t.TempDir(), "p4tickets.txt")
	log.Infof("Racing %d writer processes on %s", writerProcesses, path)

	var g errgroup.Group
	for id := 0; id < writerProcesses; id++ {
		g.Go(func() error {
			cmd := exec.Command(os.Args[0], "-test.run=^TestTicketWriterProcess$", "-test.count=1")
			cmd.Env = append(os.Environ(),
				envHelper+"=1",
				envHelperFile+"="+path,
				envHelperID+"="+strconv.Itoa(id),
			)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return fmt.Errorf("writer %d failed: %w\n%s", id, err, out)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, writerProcesses+1)

	seen := make(map[string]bool)
	for _, line := range lines {
		tk, ok := tickets.ParseLine(line)
		require.True(t, ok, "unparseable line %q", line)
		assert.False(t, seen[tk.Key()], "duplicate entry for %s", tk.Key())
		seen[tk.Key()] = true
		if tk.UserName != "shared" {
			assert.Equal(t, fmt.Sprintf("v%d", writesPerWriter-1), tk.Value, "last write of %s", tk.UserName)
		}
	}
	assert.True(t, seen["race:1666=shared"])

	_, err = os.Stat(path + tickets.LockSuffix)
	assert.True(t, os.IsNotExist(err), "lock file left behind")
}
