package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/groboclown/p4-golang/config"
	"github.com/groboclown/p4-golang/tickets"
)

var errAborted = errors.New("aborted")

type app struct {
	configPath  string
	logLevel    string
	ticketsPath string
	trustPath   string

	cfg *config.Config

	// prompts are swapped out by tests
	promptSecret  func(title string) (string, error)
	promptConfirm func(title string) (bool, error)
}

func newApp() *app {
	return &app{
		promptSecret:  promptSecret,
		promptConfirm: promptConfirm,
	}
}

func newRootCmd() *cobra.Command {
	return newApp().rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "p4tickets",
		Short:         "Manage Perforce ticket and trust files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().StringVar(&a.ticketsPath, "tickets", "", "Ticket file (default $P4TICKETS or ~/.p4tickets)")
	root.PersistentFlags().StringVar(&a.trustPath, "trust-file", "", "Trust file (default $P4TRUST or ~/.p4trust)")

	root.AddCommand(
		a.listCmd(),
		a.getCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.trustCmd(),
		a.untrustCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.ticketsPath != "" {
		cfg.Tickets.Path = a.ticketsPath
	}
	if a.trustPath != "" {
		cfg.Tickets.TrustPath = a.trustPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log.SetLevel(cfg.Level())
	a.cfg = cfg
	return nil
}

func (a *app) listCmd() *cobra.Command {
	var trust bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored tickets without their secrets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				all []tickets.Ticket
				err error
			)
			if trust {
				var store *tickets.TrustStore
				if store, err = a.cfg.OpenTrustStore(); err != nil {
					return err
				}
				all, err = store.List()
			} else {
				var store *tickets.FileStore
				if store, err = a.cfg.OpenTicketStore(); err != nil {
					return err
				}
				all, err = store.List()
			}
			if err != nil {
				return err
			}
			for _, t := range all {
				fmt.Fprintln(cmd.OutOrStdout(), t.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&trust, "trust", false, "List the trust file instead")
	return cmd
}

func (a *app) getCmd() *cobra.Command {
	var server, user string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the ticket for a server and user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cfg.OpenTicketStore()
			if err != nil {
				return err
			}
			t, err := store.Get(server, user)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("no ticket for %s", tickets.Ticket{ServerAddress: server, UserName: user}.Key())
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Value)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Server address (host:port, or port for localhost)")
	cmd.Flags().StringVar(&user, "user", "", "User name (blank matches the first user)")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var server, user, value string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a ticket for a server and user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if value == "" {
				var err error
				value, err = a.promptSecret(fmt.Sprintf("Ticket for %s@%s", user, tickets.NormalizeAddress(server)))
				if err != nil {
					return err
				}
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return fmt.Errorf("%w: blank ticket", tickets.ErrInvalidTicket)
			}
			store, err := a.cfg.OpenTicketStore()
			if err != nil {
				return err
			}
			t := tickets.Ticket{ServerAddress: server, UserName: user, Value: value}
			if err := store.Save(t); err != nil {
				return err
			}
			log.Info("Stored ticket", "key", t.Key(), "file", store.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Server address")
	cmd.Flags().StringVar(&user, "user", "", "User name")
	cmd.Flags().StringVar(&value, "value", "", "Ticket value (prompted for when omitted)")
	_ = cmd.MarkFlagRequired("server")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	var server, user string
	var yes bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the ticket for a server and user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := tickets.Ticket{ServerAddress: server, UserName: user}
			if !yes {
				ok, err := a.promptConfirm(fmt.Sprintf("Remove ticket %s?", t.Key()))
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			}
			store, err := a.cfg.OpenTicketStore()
			if err != nil {
				return err
			}
			if err := store.Delete(server, user); err != nil {
				return err
			}
			log.Info("Removed ticket", "key", t.Key())
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Server address")
	cmd.Flags().StringVar(&user, "user", "", "User name")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Don't ask for confirmation")
	_ = cmd.MarkFlagRequired("server")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func (a *app) trustCmd() *cobra.Command {
	var server, fingerprint string
	var replacement bool
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Record a server fingerprint in the trust file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cfg.OpenTrustStore()
			if err != nil {
				return err
			}
			if err := store.Trust(server, fingerprint, replacement); err != nil {
				return err
			}
			log.Info("Trusted", "server", tickets.NormalizeAddress(server), "replacement", replacement)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Server address")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "Server fingerprint")
	cmd.Flags().BoolVar(&replacement, "replacement", false, "Store as the replacement fingerprint")
	_ = cmd.MarkFlagRequired("server")
	_ = cmd.MarkFlagRequired("fingerprint")
	return cmd
}

func (a *app) untrustCmd() *cobra.Command {
	var server string
	var replacement bool
	cmd := &cobra.Command{
		Use:   "untrust",
		Short: "Forget a server fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.cfg.OpenTrustStore()
			if err != nil {
				return err
			}
			return store.Forget(server, replacement)
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Server address")
	cmd.Flags().BoolVar(&replacement, "replacement", false, "Forget the replacement fingerprint")
	_ = cmd.MarkFlagRequired("server")
	return cmd
}

func promptSecret(title string) (string, error) {
	var value string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(&value),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("failed to read ticket: %w", err)
	}
	return value, nil
}

func promptConfirm(title string) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Remove").
				Negative("Keep").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	return ok, nil
}
