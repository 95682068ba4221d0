// Package runner executes a suite of reconciliation checks.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ccollicutt/replaycheck/pkg/config"
	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

// Runner orchestrates the checks of a suite.
type Runner struct {
	cfg    *config.Config
	checks []Check

	// Options
	checkFilter map[string]bool // nil means all checks
	recorder    reconcile.Recorder
	maxParallel int
	digests     bool
	logger      *slog.Logger
}

// RunnerOption configures runner behavior.
type RunnerOption func(*Runner)

// WithCheckFilter limits the run to the named checks.
func WithCheckFilter(names []string) RunnerOption {
	return func(r *Runner) {
		if len(names) > 0 {
			r.checkFilter = make(map[string]bool)
			for _, n := range names {
				r.checkFilter[n] = true
			}
		}
	}
}

// WithRecorder forwards every diagnostic to rec as well as to the
// per-check collectors.
func WithRecorder(rec reconcile.Recorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// WithMaxParallel overrides the configured concurrency limit.
func WithMaxParallel(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxParallel = n
		}
	}
}

// WithDigests enables or disables hashing of the input files.
func WithDigests(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.digests = enabled
	}
}

// WithLogger sets the logger for run progress.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a runner from a validated configuration.
func New(cfg *config.Config, opts ...RunnerOption) (*Runner, error) {
	r := &Runner{
		cfg:         cfg,
		checks:      make([]Check, 0, len(cfg.Checks)),
		maxParallel: cfg.MaxParallel,
		digests:     true,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.maxParallel <= 0 {
		r.maxParallel = config.DefaultMaxParallel
	}

	for i := range cfg.Checks {
		cc := &cfg.Checks[i]

		if r.checkFilter != nil && !r.checkFilter[cc.Name] {
			continue
		}

		check, err := newCheck(cc)
		if err != nil {
			return nil, fmt.Errorf("creating check %q: %w", cc.Name, err)
		}
		r.checks = append(r.checks, check)
	}

	if len(r.checks) == 0 {
		return nil, errors.New("no checks to execute (check --check filter)")
	}

	return r, nil
}

// Checks returns the checks the runner will execute, in suite order.
func (r *Runner) Checks() []Check {
	return r.checks
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name        string                 `json:"name"`
	Type        config.CheckType       `json:"type"`
	Description string                 `json:"description,omitempty"`
	Result      *reconcile.Result      `json:"result"`
	Diagnostics []reconcile.Diagnostic `json:"diagnostics,omitempty"`
	Duration    time.Duration          `json:"duration"`
}

// SuiteResult contains the complete run output.
type SuiteResult struct {
	// Results holds one entry per executed check, in suite order.
	Results []*CheckResult

	Metadata RunMetadata
}

// RunMetadata provides context about the run.
type RunMetadata struct {
	ConfigFile string
	Sources    []SourceDigest
	StartTime  time.Time
	EndTime    time.Time
}

// Failed returns the number of checks that did not pass.
func (s *SuiteResult) Failed() int {
	count := 0
	for _, cr := range s.Results {
		if !cr.Result.Passed {
			count++
		}
	}
	return count
}

// Passed reports whether every check passed.
func (s *SuiteResult) Passed() bool {
	return s.Failed() == 0
}

// TotalIssues returns the number of issues across all checks.
func (s *SuiteResult) TotalIssues() int {
	total := 0
	for _, cr := range s.Results {
		total += len(cr.Result.Issues)
	}
	return total
}

// Run executes the checks concurrently and returns their results in suite
// order. The first check error cancels the remaining checks.
func (r *Runner) Run(ctx context.Context) (*SuiteResult, error) {
	suite := &SuiteResult{
		Results:  make([]*CheckResult, len(r.checks)),
		Metadata: RunMetadata{StartTime: time.Now()},
	}

	if r.digests {
		sources, err := r.digestSources(ctx)
		if err != nil {
			return nil, err
		}
		suite.Metadata.Sources = sources
	}

	descriptions := make(map[string]string, len(r.cfg.Checks))
	for _, cc := range r.cfg.Checks {
		descriptions[cc.Name] = cc.Description
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxParallel)

	for i, check := range r.checks {
		i, check := i, check
		g.Go(func() error {
			cr, err := r.runCheck(gctx, check)
			if err != nil {
				return fmt.Errorf("running check %q: %w", check.Name(), err)
			}
			cr.Description = descriptions[check.Name()]
			suite.Results[i] = cr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	suite.Metadata.EndTime = time.Now()
	return suite, nil
}

func (r *Runner) runCheck(ctx context.Context, check Check) (*CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	col := &reconcile.Collector{}
	rec := reconcile.Recorder(col)
	if r.recorder != nil {
		rec = reconcile.Tee(col, r.recorder)
	}

	start := time.Now()
	r.logger.Debug("running check", "check", check.Name(), "type", check.Type())

	result, err := check.Run(ctx, rec)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	r.logger.Info("check finished",
		"check", check.Name(),
		"passed", result.Passed,
		"issues", len(result.Issues),
		"duration", elapsed)

	return &CheckResult{
		Name:        check.Name(),
		Type:        check.Type(),
		Result:      result,
		Diagnostics: col.Diagnostics(),
		Duration:    elapsed,
	}, nil
}

func (r *Runner) digestSources(ctx context.Context) ([]SourceDigest, error) {
	seen := make(map[string]bool)
	var out []SourceDigest
	for _, check := range r.checks {
		for _, path := range check.Files() {
			if seen[path] {
				continue
			}
			seen[path] = true

			if err := ctx.Err(); err != nil {
				return nil, err
			}
			d, err := DigestFile(path)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		}
	}
	return out, nil
}
