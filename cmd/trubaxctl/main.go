package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trubax/trubax-core/internal/tools/expirywatch"
	"github.com/trubax/trubax-core/internal/tools/sweepctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:   "trubaxctl",
		Short: "Operational tooling for the follow graph and session registry",
	}
	root.AddCommand(sweepctl.NewCommand())
	root.AddCommand(expirywatch.NewCommand())

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
