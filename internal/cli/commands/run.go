package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/replaycheck/pkg/config"
	"github.com/ccollicutt/replaycheck/pkg/output"
	"github.com/ccollicutt/replaycheck/pkg/reconcile"
	"github.com/ccollicutt/replaycheck/pkg/runner"
	"github.com/ccollicutt/replaycheck/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// ReportOptions holds the flags shared by every command that runs checks.
type ReportOptions struct {
	Output   string
	Verbose  bool
	Quiet    bool
	NoDigest bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

func (o *ReportOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().BoolVarP(&o.Verbose, "verbose", "v", false, "Show statistics, input digests and diagnostics")
	cmd.Flags().BoolVarP(&o.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().BoolVar(&o.NoDigest, "no-digest", false, "Skip BLAKE3 hashing of the input files")

	cmd.Flags().StringVar(&o.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&o.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&o.WebhookTrigger, "webhook-trigger", string(config.WebhookTriggerOnFailure),
		"When to fire webhook (on_failure|always|never)")
}

// RunOptions holds command-line options for the run command.
type RunOptions struct {
	ReportOptions
	Checks      []string
	MaxParallel int
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <suite-file>",
		Short: "Run every check of a suite",
		Long: `Run the checks defined in a suite file (YAML, JSON or JSONC).

Check types:
  - json          align two JSON event streams and compare payloads
  - md5           compare the digest column of two logs positionally
  - multiplicity  require every retained event fingerprint exactly once

Exit codes:
  0 - All checks passed
  1 - At least one check failed
  2 - Configuration or runtime error`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd, args[0], opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringSliceVar(&opts.Checks, "check", nil, "Run specific check(s) only (can be repeated)")
	cmd.Flags().IntVar(&opts.MaxParallel, "max-parallel", 0, "Override max_parallel from the suite")

	return cmd
}

func runSuite(cmd *cobra.Command, suitePath string, opts *RunOptions) error {
	ctx := commandContext(cmd)

	cfg, err := config.Load(ctx, suitePath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	return execute(ctx, cmd.OutOrStdout(), cfg, suitePath, &opts.ReportOptions,
		runner.WithCheckFilter(opts.Checks),
		runner.WithMaxParallel(opts.MaxParallel))
}

// execute runs a validated configuration, prints the report, fires the
// webhooks and sets ExitCode.
func execute(ctx context.Context, w io.Writer, cfg *config.Config, configFile string, opts *ReportOptions, extra ...runner.RunnerOption) error {
	formatter, err := output.NewFormatter(opts.Output, output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	})
	if err != nil {
		return err
	}

	hooks, err := collectWebhooks(cfg, opts)
	if err != nil {
		return err
	}

	logger := slog.Default()
	runnerOpts := []runner.RunnerOption{
		runner.WithRecorder(reconcile.NewSlogRecorder(logger)),
		runner.WithLogger(logger),
		runner.WithDigests(!opts.NoDigest),
	}
	runnerOpts = append(runnerOpts, extra...)

	r, err := runner.New(cfg, runnerOpts...)
	if err != nil {
		return fmt.Errorf("creating runner: %w", err)
	}

	suite, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	report := output.NewReport(suite, configFile)
	if err := formatter.Format(ctx, report, w); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Webhook failures are logged and never change the exit code.
	webhook.NewClient().Dispatch(ctx, hooks, report, logger)

	if report.HasFailures() {
		ExitCode = 1
	}
	return nil
}

// collectWebhooks merges suite webhooks with the one given on the command line.
func collectWebhooks(cfg *config.Config, opts *ReportOptions) ([]config.WebhookConfig, error) {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		wh := config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: config.WebhookTrigger(opts.WebhookTrigger),
		}
		if err := config.ValidateWebhook(&wh); err != nil {
			return nil, fmt.Errorf("--webhook-url: %w", err)
		}
		webhooks = append(webhooks, wh)
	}

	return webhooks, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
