// Package cli wires the timekiosk commands: the hub server, the device
// agent, reporting, seeding, and the wipe escape hatch.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timekiosk/timekiosk/internal/config"
	"github.com/timekiosk/timekiosk/internal/log"
	"github.com/timekiosk/timekiosk/internal/store"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root timekiosk command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "timekiosk",
		Short: "Offline-first time clock",
		Long: `Timekiosk is an offline-first employee time clock. Each device keeps a
full local copy of the data and replicates with a hub whenever one is
reachable; punches never wait on the network.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the device database (overrides config)")

	cmd.AddCommand(NewHubCommand(opts))
	cmd.AddCommand(NewAgentCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewWipeCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig resolves configuration with flag overrides applied.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	return cfg, nil
}

// newLogger builds the command logger; --verbose forces debug.
func newLogger(opts *RootOptions, cfg *config.Config) *zap.Logger {
	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	return log.NewLogger(level)
}

// openDeviceStore opens the configured device store.
func openDeviceStore(cfg *config.Config, logger *zap.Logger) (*store.Store, error) {
	storeOpts := []store.Option{store.WithLogger(logger)}
	if cfg.Database.Passphrase != "" {
		storeOpts = append(storeOpts, store.WithPassphrase(cfg.Database.Passphrase))
	}
	st, err := store.Open(cfg.Database.Path, storeOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open device store", err)
	}
	return st, nil
}
