package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marketarb/agent/internal/app"
	"github.com/marketarb/agent/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the arbitrage agent",
	Long: `Starts the agent loop, which will:
1. Discover and match equivalent markets across Predict, Probable, and Opinion
2. Poll each venue's live quotes into a shared store
3. Scan for two-leg arbitrage opportunities above the configured spread
4. Execute qualifying trades and persist the resulting positions

Runs until interrupted (SIGINT/SIGTERM), then shuts down gracefully.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("dry-run", false, "Override DRY_RUN from the environment")
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	opts := &app.Options{}
	if cmd.Flags().Changed("dry-run") {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		opts.DryRunOverride = &dryRun
	}

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx)

	if err := application.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("shutdown app: %w", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return fmt.Errorf("run app: %w", runErr)
	}
	return nil
}
