package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/endorsement-backend/internal/database"
	"github.com/sandeepkv93/endorsement-backend/internal/di"
	"github.com/sandeepkv93/endorsement-backend/internal/tools/common"
)

const exitCodeFailure = 3

type options struct {
	envFile  string
	password string
	timeout  time.Duration
	ci       bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Demo data tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.password, "password", "demo-password-123", "password shared by the demo accounts")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Create demo accounts and recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.ci, opts.timeout, "seed apply", exitCodeFailure, func(ctx context.Context) ([]string, error) {
				if len(opts.password) < 8 {
					return nil, fmt.Errorf("password must be at least 8 characters")
				}
				if err := common.LoadEnvFile(opts.envFile); err != nil {
					return nil, err
				}
				runner, err := di.InitializeMigrationRunner()
				if err != nil {
					return nil, err
				}
				defer func() { _ = runner.Close() }()
				if err := runner.Up(ctx); err != nil {
					return nil, err
				}
				report, err := runner.SeedDemo(ctx, opts.password)
				if err != nil {
					return nil, err
				}
				return []string{
					fmt.Sprintf("created_accounts=%d", report.CreatedAccounts),
					fmt.Sprintf("created_recommendations=%d", report.CreatedRecommendations),
					fmt.Sprintf("noop=%t", report.Noop),
				}, nil
			})
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would create",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.ci, opts.timeout, "seed dry-run", exitCodeFailure, func(context.Context) ([]string, error) {
				return database.DemoPlan(), nil
			})
		},
	}
}
