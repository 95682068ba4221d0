package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ccollicutt/replaycheck/pkg/reconcile"
	"github.com/ccollicutt/replaycheck/pkg/runner"
)

// maxRawWidth bounds how much of a raw line is echoed per issue.
const maxRawWidth = 160

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "replaycheck: %d checks run, %d failed, %d total issues\n",
		report.Summary.ChecksRun,
		report.Summary.ChecksFailed,
		report.Summary.TotalIssues)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== replaycheck Report ===")
	fmt.Fprintln(w)

	for _, cr := range report.Results {
		f.formatCheckResult(cr, w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d checks run, %d failed, %d total issues\n",
		report.Summary.ChecksRun,
		report.Summary.ChecksFailed,
		report.Summary.TotalIssues)

	if f.opts.Verbose {
		for _, src := range report.Metadata.Sources {
			fmt.Fprintf(w, "Input: %s (%d bytes, blake3 %s)\n", src.Path, src.Size, src.BLAKE3)
		}
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) formatCheckResult(cr *runner.CheckResult, w io.Writer) {
	res := cr.Result
	status := "PASS"
	if !res.Passed {
		status = "FAIL"
	}
	fmt.Fprintf(w, "[%s] %s %s\n", strings.ToUpper(string(cr.Type)), cr.Name, status)

	if cr.Description != "" && f.opts.Verbose {
		fmt.Fprintf(w, "  %s\n", cr.Description)
	}
	fmt.Fprintf(w, "  %s\n  %s\n", res.Sources[0], res.Sources[1])

	if f.opts.Verbose {
		f.formatStats(cr, w)
	}

	if !res.HasIssues() {
		fmt.Fprintln(w, "  No issues detected")
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "  Issues: %d\n", len(res.Issues))
	for i := range res.Issues {
		f.formatIssue(&res.Issues[i], w)
	}

	if f.opts.Verbose {
		for _, d := range cr.Diagnostics {
			if d.Level == reconcile.LevelDebug {
				continue
			}
			fmt.Fprintf(w, "    %s %s: %s\n", d.Level, d.Code, d.Message)
		}
	}

	fmt.Fprintln(w)
}

func (f *TextFormatter) formatStats(cr *runner.CheckResult, w io.Writer) {
	s := cr.Result.Stats
	switch reconcile.CheckType(cr.Type) {
	case reconcile.TypeMultiplicity:
		fmt.Fprintf(w, "  Retained: %d / %d, excluded: %d / %d, counts: %v / %v\n",
			s.Retained1, s.Retained2, s.Excluded1, s.Excluded2, s.Counts1, s.Counts2)
	default:
		fmt.Fprintf(w, "  Lines: %d / %d, compared: %d, skipped: %d / %d, trailing: %d / %d\n",
			s.Lines1, s.Lines2, s.Compared, s.Skipped1, s.Skipped2, s.Trailing1, s.Trailing2)
	}
}

func (f *TextFormatter) formatIssue(issue *reconcile.Issue, w io.Writer) {
	ctx := issue.Context
	switch issue.Type {
	case reconcile.IssueTypeMismatch:
		fmt.Fprintf(w, "  - mismatch at line %d / %d: %s\n", ctx.Index1, ctx.Index2, issue.Description)
		if ctx.Raw1 != "" || ctx.Raw2 != "" {
			fmt.Fprintf(w, "    < %s\n    > %s\n", truncate(ctx.Raw1), truncate(ctx.Raw2))
		}
	case reconcile.IssueTypeDuplicate:
		fmt.Fprintf(w, "  - stream %d: %s seen %d times (type %#x)\n",
			ctx.Stream, ctx.Fingerprint, ctx.Count, ctx.Kind)
	default:
		fmt.Fprintf(w, "  - %s\n", issue.Description)
	}

	if f.opts.Verbose && ctx.Source != "" {
		fmt.Fprintf(w, "    Source: %s\n", ctx.Source)
	}
}

func truncate(s string) string {
	if len(s) <= maxRawWidth {
		return s
	}
	return s[:maxRawWidth] + "..."
}
