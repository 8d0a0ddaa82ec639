package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/endorsement-backend/internal/tools/common"
)

const exitCodeFailure = 4

type options struct {
	cfg Config
	ci  bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "loadgen", Short: "Generate API traffic against a running server"}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.cfg.BaseURL, "base-url", "http://localhost:8080", "API base URL")
	f.StringVar(&opts.cfg.Profile, "profile", "mixed", "traffic profile: read|mixed|error-heavy|idempotent")
	f.DurationVar(&opts.cfg.Duration, "duration", 15*time.Second, "traffic duration")
	f.IntVar(&opts.cfg.RPS, "rps", 20, "requests per second")
	f.IntVar(&opts.cfg.Concurrency, "concurrency", 6, "concurrent workers")
	f.StringVar(&opts.cfg.Email, "email", "alice@demo.local", "account to sign in as; empty sends anonymous traffic")
	f.StringVar(&opts.cfg.Password, "password", "demo-password-123", "password for --email")
	f.StringVar(&opts.cfg.RecipientID, "recipient-id", "", "recipient used by write requests")
	f.BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run load generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return common.Execute(opts.ci, opts.cfg.Duration+15*time.Second, "loadgen run", exitCodeFailure, func(ctx context.Context) ([]string, error) {
				res, err := Run(ctx, opts.cfg)
				if err != nil {
					return nil, err
				}
				return []string{
					fmt.Sprintf("total_requests=%d", res.TotalRequests),
					fmt.Sprintf("failures=%d", res.Failures),
					fmt.Sprintf("status_2xx=%d", res.Status2xx),
					fmt.Sprintf("status_4xx=%d", res.Status4xx),
					fmt.Sprintf("status_5xx=%d", res.Status5xx),
				}, nil
			})
		},
	}
}
