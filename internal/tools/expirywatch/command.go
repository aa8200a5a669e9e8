package expirywatch

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/trubax/trubax-core/internal/app"
	"github.com/trubax/trubax-core/internal/service"
	"github.com/trubax/trubax-core/internal/tools/common"
)

type options struct {
	envFile   string
	accountID string
	loginAt   string
}

// NewCommand shows a live countdown to an anonymous account's session
// deadline. The tool never terminates anything; at zero it polls the
// registry until the sweep has actually expired the sessions.
func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch an anonymous account's session expiry countdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with TRUBAX_* settings")
	cmd.Flags().StringVar(&opts.accountID, "account-id", "", "account to watch")
	cmd.Flags().StringVar(&opts.loginAt, "login-at", "", "login time, RFC3339 (default: now)")
	_ = cmd.MarkFlagRequired("account-id")
	return cmd
}

func run(ctx context.Context, opts *options) error {
	if err := common.LoadEnvFile(opts.envFile); err != nil {
		return err
	}

	loginAt := time.Now().UTC()
	if opts.loginAt != "" {
		parsed, err := time.Parse(time.RFC3339, opts.loginAt)
		if err != nil {
			return fmt.Errorf("parse login-at: %w", err)
		}
		loginAt = parsed
	}

	a, err := app.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() { _ = a.Shutdown(ctx) }()

	confirm := func(ctx context.Context, accountID string) (bool, error) {
		sessions, err := a.Sessions.ListSessions(ctx, accountID, "")
		if err != nil {
			return false, err
		}
		for _, s := range sessions {
			if s.IsActive {
				return true, nil
			}
		}
		return false, nil
	}
	advisor := service.NewExpiryAdvisor(opts.accountID, loginAt, confirm, a.Logger)

	_, err = tea.NewProgram(newModel(ctx, opts.accountID, advisor)).Run()
	return err
}
