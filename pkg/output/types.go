// Package output provides formatting and output generation for check results.
package output

import (
	"time"

	"github.com/ccollicutt/replaycheck/pkg/runner"
)

// Report is the complete run output.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Results contains the outcome of each check.
	Results []*runner.CheckResult `json:"results"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Summary provides aggregate statistics.
type Summary struct {
	// ChecksRun is the number of checks that were executed.
	ChecksRun int `json:"checks_run"`

	// ChecksFailed is the number of checks that did not pass.
	ChecksFailed int `json:"checks_failed"`

	// TotalIssues is the total number of issues detected.
	TotalIssues int `json:"total_issues"`

	// Passed is true when every check passed.
	Passed bool `json:"passed"`
}

// Metadata provides context about the run.
type Metadata struct {
	// ConfigFile is the suite file used, empty for ad hoc checks.
	ConfigFile string `json:"config_file,omitempty"`

	// Sources pins every input file by size and BLAKE3 digest.
	Sources []runner.SourceDigest `json:"sources,omitempty"`

	// RunAt is when the run completed.
	RunAt time.Time `json:"run_at"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`
}

// NewReport creates a Report from a suite result.
func NewReport(suite *runner.SuiteResult, configFile string) *Report {
	return &Report{
		Results: suite.Results,
		Metadata: Metadata{
			ConfigFile: configFile,
			Sources:    suite.Metadata.Sources,
			RunAt:      suite.Metadata.EndTime,
			Duration:   suite.Metadata.EndTime.Sub(suite.Metadata.StartTime),
		},
		Summary: Summary{
			ChecksRun:    len(suite.Results),
			ChecksFailed: suite.Failed(),
			TotalIssues:  suite.TotalIssues(),
			Passed:       suite.Passed(),
		},
	}
}

// HasFailures returns true if any check failed.
func (r *Report) HasFailures() bool {
	return r.Summary.ChecksFailed > 0
}
