package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/groboclown/p4-golang/p4"
	"github.com/groboclown/p4-golang/tickets"
)

// Config holds the client settings.
type Config struct {
	Tickets   TicketsConfig   `yaml:"tickets"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TicketsConfig configures the ticket and trust files.
type TicketsConfig struct {
	// Path of the ticket file. Empty means $P4TICKETS or the per-user default.
	Path      string `yaml:"path"`
	TrustPath string `yaml:"trust_path"`
	LockTries uint   `yaml:"lock_tries"`
	LockWait  string `yaml:"lock_wait"` // e.g. "1s", "250ms"
}

// ReconcileConfig configures the move and file reconcilers.
type ReconcileConfig struct {
	// MaxFileResults caps the fstat records requested per file.
	MaxFileResults int `yaml:"max_file_results"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Tickets: TicketsConfig{
			LockTries: tickets.DefaultLockTries,
			LockWait:  tickets.DefaultLockWait.String(),
		},
		Reconcile: ReconcileConfig{
			MaxFileResults: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			log.Debug("No config file, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if p := os.Getenv(tickets.EnvTickets); p != "" {
		c.Tickets.Path = p
	}
	if p := os.Getenv(tickets.EnvTrust); p != "" {
		c.Tickets.TrustPath = p
	}
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks the values that can't be defaulted away.
func (c *Config) Validate() error {
	if c.Tickets.LockTries == 0 {
		return fmt.Errorf("tickets.lock_tries must be at least 1")
	}
	if _, err := c.LockWaitDuration(); err != nil {
		return err
	}
	if c.Reconcile.MaxFileResults < 1 {
		return fmt.Errorf("reconcile.max_file_results must be at least 1, got %d", c.Reconcile.MaxFileResults)
	}
	if _, err := log.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level %q: %w", c.Logging.Level, err)
	}
	return nil
}

// LockWaitDuration parses tickets.lock_wait.
func (c *Config) LockWaitDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Tickets.LockWait)
	if err != nil {
		return 0, fmt.Errorf("invalid tickets.lock_wait %q: %w", c.Tickets.LockWait, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("tickets.lock_wait must not be negative, got %s", d)
	}
	return d, nil
}

// TicketPath returns the configured ticket file, or the default location.
func (c *Config) TicketPath() (string, error) {
	if c.Tickets.Path != "" {
		return c.Tickets.Path, nil
	}
	return tickets.DefaultTicketPath()
}

// TrustPath returns the configured trust file, or the default location.
func (c *Config) TrustPath() (string, error) {
	if c.Tickets.TrustPath != "" {
		return c.Tickets.TrustPath, nil
	}
	return tickets.DefaultTrustPath()
}

// Level returns the parsed log level.
func (c *Config) Level() log.Level {
	level, err := log.ParseLevel(c.Logging.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// OpenTicketStore opens the ticket file with the configured lock retry.
func (c *Config) OpenTicketStore() (*tickets.FileStore, error) {
	path, err := c.TicketPath()
	if err != nil {
		return nil, err
	}
	wait, err := c.LockWaitDuration()
	if err != nil {
		return nil, err
	}
	store := tickets.NewFileStore(path)
	store.SetLockRetry(c.Tickets.LockTries, wait)
	return store, nil
}

// OpenTrustStore opens the trust file with the configured lock retry.
func (c *Config) OpenTrustStore() (*tickets.TrustStore, error) {
	path, err := c.TrustPath()
	if err != nil {
		return nil, err
	}
	wait, err := c.LockWaitDuration()
	if err != nil {
		return nil, err
	}
	trust, store := tickets.NewTrustFileStore(path)
	store.SetLockRetry(c.Tickets.LockTries, wait)
	return trust, nil
}

// NewMoveReconciler builds a move reconciler limited to
// reconcile.max_file_results records per file.
func (c *Config) NewMoveReconciler(exec p4.CommandExecutor, status p4.FileStatusProbe) *p4.MoveReconciler {
	m := p4.NewMoveReconciler(exec, status)
	m.SetMaxResults(c.Reconcile.MaxFileResults)
	return m
}

// NewFileReconciler is NewMoveReconciler for add, edit and delete.
func (c *Config) NewFileReconciler(exec p4.CommandExecutor, status p4.FileStatusProbe) *p4.FileReconciler {
	f := p4.NewFileReconciler(exec, status)
	f.SetMaxResults(c.Reconcile.MaxFileResults)
	return f
}
