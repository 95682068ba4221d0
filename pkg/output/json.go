package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/ccollicutt/replaycheck/pkg/runner"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// Format renders the report as JSON. Diagnostics are only included in
// verbose mode.
func (f *JSONFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if f.opts.Quiet {
		return encoder.Encode(report.Summary)
	}

	if f.opts.Verbose {
		return encoder.Encode(report)
	}

	trimmed := *report
	trimmed.Results = make([]*runner.CheckResult, len(report.Results))
	for i, cr := range report.Results {
		c := *cr
		c.Diagnostics = nil
		trimmed.Results[i] = &c
	}
	return encoder.Encode(&trimmed)
}
