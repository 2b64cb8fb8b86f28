package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/timekiosk/timekiosk/internal/store"
)

// WipeOptions holds flags for the wipe command.
type WipeOptions struct {
	*RootOptions
	Yes bool
}

// NewWipeCommand creates the wipe command.
func NewWipeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WipeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Destroy the device store",
		Long: `Destroy the device database and its sidecar files. The next agent start
reinitializes an empty store and, with a configured hub, pulls
everything back down.

Requires --yes; there is no prompt and no undo.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWipe(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm destruction")
	return cmd
}

func runWipe(ctx context.Context, opts *WipeOptions, cmd *cobra.Command) error {
	if !opts.Yes {
		return NewExitError(ExitCommandError, "refusing to wipe without --yes")
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	logger := newLogger(opts.RootOptions, cfg)
	defer logger.Sync()

	// Opening before destroying keeps the removal to files that actually
	// are a store, rather than rm on an arbitrary path.
	st, err := store.Open(cfg.Database.Path, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "open device store", err)
	}
	if err := st.Destroy(ctx); err != nil {
		return WrapExitError(ExitFailure, "destroy store", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Success("store destroyed: " + cfg.Database.Path)
}
