package tickets

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Environment variables naming the ticket and trust files
const (
	EnvTickets = "P4TICKETS"
	EnvTrust   = "P4TRUST"
)

// DefaultTicketPath returns $P4TICKETS, or the per-user default ticket file.
func DefaultTicketPath() (string, error) {
	return defaultPath(EnvTickets, ".p4tickets", "p4tickets.txt")
}

// DefaultTrustPath returns $P4TRUST, or the per-user default trust file.
func DefaultTrustPath() (string, error) {
	return defaultPath(EnvTrust, ".p4trust", "p4trust.txt")
}

func defaultPath(env, unixName, windowsName string) (string, error) {
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory for %s: %w", env, err)
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(home, windowsName), nil
	}
	return filepath.Join(home, unixName), nil
}
