package migrate

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/endorsement-backend/internal/di"
	"github.com/sandeepkv93/endorsement-backend/internal/tools/common"
)

const exitCodeFailure = 3

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database schema tooling",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newCommand(opts, "up", "Apply pending migrations", func(ctx context.Context, r *di.MigrationRunner) ([]string, error) {
			if err := r.Up(ctx); err != nil {
				return nil, err
			}
			return []string{"schema is up to date", "dialect: " + r.DB.Dialector.Name()}, nil
		}),
		newCommand(opts, "status", "Show applied and pending migrations", func(ctx context.Context, r *di.MigrationRunner) ([]string, error) {
			if err := r.Status(ctx); err != nil {
				return nil, err
			}
			return []string{"status written to log", "dialect: " + r.DB.Dialector.Name()}, nil
		}),
		newCommand(opts, "down", "Roll back the most recent migration", func(ctx context.Context, r *di.MigrationRunner) ([]string, error) {
			if err := r.Down(ctx); err != nil {
				return nil, err
			}
			return []string{"rolled back one migration"}, nil
		}),
	)
	return cmd
}

func newCommand(opts *options, use, short string, fn func(context.Context, *di.MigrationRunner) ([]string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.ci, opts.timeout, "migrate "+use, exitCodeFailure, func(ctx context.Context) ([]string, error) {
				runner, err := openRunner(opts.envFile)
				if err != nil {
					return nil, err
				}
				defer func() { _ = runner.Close() }()
				return fn(ctx, runner)
			})
		},
	}
}

func openRunner(envFile string) (*di.MigrationRunner, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return di.InitializeMigrationRunner()
}
