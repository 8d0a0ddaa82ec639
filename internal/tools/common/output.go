package common

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sandeepkv93/endorsement-backend/internal/tools/ui"
)

type CIResult struct {
	OK         bool     `json:"ok"`
	Title      string   `json:"title"`
	Details    []string `json:"details,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

func WriteCIResult(w io.Writer, title string, details []string, err error, elapsed time.Duration) error {
	result := CIResult{OK: err == nil, Title: title, Details: details, DurationMS: elapsed.Milliseconds()}
	if err != nil {
		result.Error = err.Error()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

type Action func(ctx context.Context) ([]string, error)

// Execute runs action either headless with JSON output (ci) or behind the
// interactive progress view, and exits with exitCode on failure.
func Execute(ci bool, timeout time.Duration, title string, exitCode int, action Action) error {
	start := time.Now()
	var (
		details []string
		err     error
	)
	if ci {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		details, err = action(ctx)
		cancel()
		_ = WriteCIResult(os.Stdout, title, details, err, time.Since(start))
	} else {
		details, err = ui.Run(title, timeout, action)
	}
	if err != nil {
		os.Exit(exitCode)
	}
	return nil
}
