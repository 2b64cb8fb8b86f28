package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timekiosk/timekiosk/internal/actions"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed an empty store with demo data",
		Long: `Run the first-run seed check: if the store has no employees, load the
embedded demo dataset and a month of synthetic punch history. A store
with any employees at all is left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runSeed(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	logger := newLogger(opts, cfg)
	defer logger.Sync()

	st, err := openDeviceStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	seeded, err := actions.NewService(st, logger).SeedIfEmpty(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "seed store", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if seeded {
		return formatter.Success("store seeded")
	}
	return formatter.Success(fmt.Sprintf("store at %s already has employees, nothing to do", cfg.Database.Path))
}
