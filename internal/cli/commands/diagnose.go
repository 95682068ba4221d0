package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/replaycheck/pkg/config"
	"github.com/ccollicutt/replaycheck/pkg/detector"
	"github.com/ccollicutt/replaycheck/pkg/parser"
	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <suite-file>",
		Short: "Diagnose common suite issues",
		Long: `Diagnose common suite issues.

This command checks a suite file for common problems:
- Suite file syntax and structure
- Input file existence and accessibility
- Input line format against each check type
- Webhook configuration

Example:
  replaycheck diagnose suite.yaml
  replaycheck diagnose -v suite.yaml  # verbose output, probes webhooks`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, w io.Writer, suitePath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{checkConfigExists(suitePath)}
	if results[0].Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	cfg, result := checkConfigParseable(ctx, suitePath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(w, results, opts)
		return nil
	}

	for i := range cfg.Checks {
		results = append(results, checkInputs(ctx, &cfg.Checks[i], opts)...)
	}
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(w, results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{Check: "Suite File"}

	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		result.Status = "error"
		result.Message = fmt.Sprintf("Suite file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'replaycheck detect -w suite.yaml <log> <peer-log>' to generate a starter suite",
		}
	case err != nil:
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access suite file: %v", err)
		result.Suggests = []string{"Check file permissions"}
	case info.IsDir():
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
	case info.Size() == 0:
		result.Status = "error"
		result.Message = "Suite file is empty"
	default:
		result.Status = "ok"
		result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	}
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{Check: "Suite Syntax"}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse suite: %v", err)
		if strings.Contains(err.Error(), "yaml") {
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
				"JSON suites must use the .json or .jsonc extension",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Suite file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Checks: %d", len(cfg.Checks)),
		fmt.Sprintf("Exception sets: %d", len(cfg.ExceptionSets)),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

// checkInputs verifies that both inputs of a check exist and that their
// lines look like what the check type consumes.
func checkInputs(ctx context.Context, check *config.CheckConfig, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	paths, err := parser.ResolvePaths(check.Files)
	if err != nil {
		return append(results, DiagnosticResult{
			Check:    fmt.Sprintf("Inputs: %s", check.Name),
			Status:   "error",
			Message:  err.Error(),
			Suggests: []string{"Each entry of files must name exactly one log"},
		})
	}

	d := detector.New()
	for _, path := range paths {
		result := DiagnosticResult{Check: fmt.Sprintf("Input: %s (%s)", path, check.Name)}

		info, err := os.Stat(path)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot access: %v", err)
			results = append(results, result)
			continue
		}
		if info.Size() == 0 {
			result.Status = "warning"
			result.Message = "File is empty"
			results = append(results, result)
			continue
		}

		detection, err := d.DetectFromFile(ctx, path)
		if err != nil {
			result.Status = "error"
			result.Message = fmt.Sprintf("Cannot read: %v", err)
			results = append(results, result)
			continue
		}

		want := reconcile.CheckType(check.Type)
		match := formatFor(detection, want)
		switch {
		case match == nil:
			result.Status = "warning"
			result.Message = fmt.Sprintf("No sampled line is in the %s check format", want)
			if rec, ok := detection.Recommend(); ok {
				result.Suggests = []string{fmt.Sprintf("The file looks suited to a %s check", rec)}
			}
		case want == reconcile.TypeMD5 && check.MD5 != nil && match.Column != check.MD5.Column:
			result.Status = "warning"
			result.Message = fmt.Sprintf("Digests found in column %d, check projects column %d", match.Column, check.MD5.Column)
		default:
			result.Status = "ok"
			result.Message = fmt.Sprintf("%.0f%% of sampled lines match (%d bytes)", match.Confidence*100, info.Size())
		}

		if opts.Verbose && match != nil {
			result.Details = []string{"Sample: " + truncate(match.SampleLine, 120)}
		}
		results = append(results, result)
	}

	return results
}

func formatFor(r *detector.DetectionResult, check reconcile.CheckType) *detector.FormatMatch {
	for i := range r.Matches {
		if r.Matches[i].Format.Check == check {
			return &r.Matches[i]
		}
	}
	return nil
}

func printDiagnostics(w io.Writer, results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Fprintln(w, "=== replaycheck Suite Diagnostics ===")
	fmt.Fprintln(w)

	okCount, warnCount, errCount := 0, 0, 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Fprintf(w, "[%s] %s\n", icon, r.Check)
		fmt.Fprintf(w, "    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Fprintf(w, "      - %s\n", d)
			}
		}
		for _, s := range r.Suggests {
			fmt.Fprintf(w, "      Hint: %s\n", s)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	switch {
	case errCount > 0:
		fmt.Fprintln(w, "\nFix the errors above before running the suite.")
	case warnCount > 0:
		fmt.Fprintln(w, "\nSuite is usable but has warnings.")
	default:
		fmt.Fprintln(w, "\nSuite looks good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{Check: fmt.Sprintf("Webhook: %s", name)}

		if wh.Token == "" && opts.Verbose {
			result.Details = append(result.Details, "Token: none")
		}

		result.Status = "ok"
		result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
		if opts.Verbose {
			result.Details = append(result.Details,
				fmt.Sprintf("URL: %s", wh.URL),
				fmt.Sprintf("Timeout: %s", wh.Timeout))
		}
		results = append(results, result)

		if opts.Verbose {
			probe := checkWebhookConnectivity(wh)
			probe.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, probe)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}
	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{"The endpoint may only accept POST, which is what a run sends"}
	}
	return result
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
