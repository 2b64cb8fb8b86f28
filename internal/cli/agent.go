package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/timekiosk/timekiosk/internal/actions"
	"github.com/timekiosk/timekiosk/internal/replication"
)

// AgentOptions holds flags for the agent command.
type AgentOptions struct {
	*RootOptions
	NoSeed bool
}

// NewAgentCommand creates the agent command.
func NewAgentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AgentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run the device agent",
		Long: `Run the device-side agent: open the local store, seed it on first run,
and keep replication aligned with the remoteDbUrl setting until
interrupted.

Example:
  timekiosk agent --db /var/lib/timekiosk/kiosk.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoSeed, "no-seed", false, "skip the first-run demo seed")
	return cmd
}

func runAgent(ctx context.Context, opts *AgentOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	logger := newLogger(opts.RootOptions, cfg).With(zap.String("device", cfg.Device.Name))
	defer logger.Sync()

	st, err := openDeviceStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := actions.NewService(st, logger)
	if !opts.NoSeed {
		seeded, err := svc.SeedIfEmpty(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "seed store", err)
		}
		if seeded {
			logger.Info("first run: store seeded with demo data")
		}
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("agent running", zap.String("db", cfg.Database.Path))
	manager := replication.NewManager(st, logger)
	if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "replication manager", err)
	}
	return nil
}
