package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/replaycheck/pkg/detector"
	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

// placeholderPeer stands in for the second log of a starter check.
const placeholderPeer = "CHANGE-ME.log"

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file> [peer-log-file]",
		Short: "Detect which check a log file suits",
		Long: `Sample a log file and test its lines against the known event formats:

  - fingerprint events  "<prefix> INFO: <kind> <fingerprint> <rest>"  (multiplicity)
  - JSON events         "<prefix> {json}"                              (json)
  - md5 digest column   a 32 hex digit field                           (md5)

Reports the best format with a confidence score and recommends a check.
With --write-config a starter suite is generated; the optional peer log
becomes the second file of the check.

Example:
  replaycheck detect engine.log
  replaycheck detect --sample 500 broker.log
  replaycheck detect -w suite.yaml engine.log broker.log`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected formats, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter suite to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	peer := placeholderPeer
	if len(args) == 2 {
		peer = args[1]
	}
	w := cmd.OutOrStdout()

	if !fileExists(logFile) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))
	result, err := d.DetectFromFile(commandContext(cmd), logFile)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(w, result, logFile, peer, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(w, result, logFile, opts)
	case "text":
		return outputDetectText(w, result, logFile, opts)
	default:
		return fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== Event Format Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintf(w, "Lines matched: %d\n", result.MatchedLines)
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No event format detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: sample more lines with --sample, the head of the file may be a banner.")
		return nil
	}

	best := result.BestMatch()
	fmt.Fprintf(w, "Detected Format: %s\n", best.Format.Name)
	fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d lines matched)\n",
		best.Confidence*100, best.MatchCount, result.SampledLines)
	if best.Column > 0 {
		fmt.Fprintf(w, "Column: %d\n", best.Column)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sample match:\n  %s\n", best.SampleLine)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Recommended check: %s\n", best.Format.Check)
	fmt.Fprintln(w)

	if opts.ShowAll && len(result.Matches) > 1 {
		fmt.Fprintln(w, "--- Alternative formats detected ---")
		for i, m := range result.Matches[1:] {
			fmt.Fprintf(w, "%d. %s (%.1f%% confidence, check %s)\n", i+2, m.Format.Name, m.Confidence*100, m.Format.Check)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// JSONMatch represents a format match in JSON output.
type JSONMatch struct {
	Name       string  `json:"name"`
	Check      string  `json:"check"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	Column     int     `json:"column,omitempty"`
	SampleLine string  `json:"sample_line"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File         string      `json:"file"`
	Matches      []JSONMatch `json:"matches"`
	SampledLines int         `json:"sampled_lines"`
	MatchedLines int         `json:"matched_lines"`
	Recommended  string      `json:"recommended,omitempty"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	out := JSONOutput{
		File:         logFile,
		SampledLines: result.SampledLines,
		MatchedLines: result.MatchedLines,
		Matches:      make([]JSONMatch, 0),
	}
	if check, ok := result.Recommend(); ok {
		out.Recommended = string(check)
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1]
	}
	for _, m := range matches {
		out.Matches = append(out.Matches, JSONMatch{
			Name:       m.Format.Name,
			Check:      string(m.Format.Check),
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			Column:     m.Column,
			SampleLine: m.SampleLine,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter suite for the detected format.
func writeStarterConfig(w io.Writer, result *detector.DetectionResult, logFile, peer, configPath string) error {
	if fileExists(configPath) {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	check, ok := result.Recommend()
	if !ok {
		return fmt.Errorf("cannot generate config: no event format detected")
	}

	content := generateStarterConfig(absPath(logFile), absPath(peer), check, result.BestMatch())

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

func absPath(p string) string {
	if p == placeholderPeer {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// generateStarterConfig creates a YAML suite template.
func generateStarterConfig(logFile, peer string, check reconcile.CheckType, match *detector.FormatMatch) string {
	var body string
	switch check {
	case reconcile.TypeMultiplicity:
		body = `    scenario: broker_restart   # or engine_restart
    # extra_excluded_kinds: [65560]`
	case reconcile.TypeMD5:
		body = fmt.Sprintf(`    md5:
      column: %d
      # skip_left: [test1.lua]
      # skip_right_pairs: [{first: test.lua, second: 055b1a6348a16305474b60de439a0efd}]`, match.Column)
	default:
		body = fmt.Sprintf(`    tolerance: %g`, reconcile.DefaultTolerance)
	}

	return fmt.Sprintf(`# replaycheck suite
# Generated by: replaycheck detect
# Detected format: %s (%.0f%% confidence)

checks:
  - name: %s-check
    type: %s
    files:
      - %s
      - %s
%s

# max_parallel: 4
# webhooks:
#   - url: https://example.com/hook
#     trigger: on_failure
`, match.Format.Name, match.Confidence*100,
		check, check,
		logFile, peer,
		body)
}
