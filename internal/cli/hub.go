package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timekiosk/timekiosk/internal/hub"
	"github.com/timekiosk/timekiosk/internal/store"
)

// HubOptions holds flags for the hub command.
type HubOptions struct {
	*RootOptions
	Addr string
}

// NewHubCommand creates the hub command.
func NewHubCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HubOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hub",
		Short: "Run the replication hub",
		Long: `Run the replication hub the devices converge through.

The hub persists into its own unencrypted store and serves the
per-collection changes and bulk_docs routes on the configured address.

Example:
  timekiosk hub --addr :5984`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHub(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config, usually :5984)")
	return cmd
}

func runHub(ctx context.Context, opts *HubOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	logger := newLogger(opts.RootOptions, cfg)
	defer logger.Sync()

	addr := cfg.Hub.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	// The hub store is plain: devices encrypt at rest, the hub sits on a
	// trusted network and must stay inspectable.
	st, err := store.Open(cfg.Hub.Path, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "open hub store", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := hub.NewServer(st, logger).Run(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "hub server", err)
	}
	return nil
}
