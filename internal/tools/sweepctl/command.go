package sweepctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trubax/trubax-core/internal/app"
	"github.com/trubax/trubax-core/internal/tools/common"
)

type options struct {
	envFile string
}

// NewCommand runs a one-off cleanup sweep against the configured store.
// Operationally useful after downtime, when the in-process scheduler has
// not run for longer than the anonymous TTL.
func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one session cleanup sweep and report what it terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with TRUBAX_* settings")
	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	if err := common.LoadEnvFile(opts.envFile); err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() { _ = a.Shutdown(ctx) }()

	report, err := a.Scheduler.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	cmd.Printf("candidates:    %d\n", report.Candidates)
	cmd.Printf("terminated:    %d\n", report.Terminated)
	cmd.Printf("failed chunks: %d\n", report.FailedChunks)
	if report.FailedChunks > 0 {
		cmd.Println("some chunks failed; the next sweep will retry their sessions")
	}
	return nil
}
