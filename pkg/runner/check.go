package runner

import (
	"context"
	"fmt"

	"github.com/ccollicutt/replaycheck/pkg/config"
	"github.com/ccollicutt/replaycheck/pkg/parser"
	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

// Check runs one reconciliation over a pair of logs.
type Check interface {
	// Name returns the check name for reporting.
	Name() string

	// Type returns the check type (json, md5, multiplicity).
	Type() config.CheckType

	// Files returns the two resolved input paths.
	Files() [2]string

	// Run performs the comparison. Diagnostics go to rec.
	Run(ctx context.Context, rec reconcile.Recorder) (*reconcile.Result, error)
}

type baseCheck struct {
	name  string
	typ   config.CheckType
	files [2]string
}

func (b *baseCheck) Name() string           { return b.name }
func (b *baseCheck) Type() config.CheckType { return b.typ }
func (b *baseCheck) Files() [2]string       { return b.files }

type jsonCheck struct {
	baseCheck
	tolerance float64
}

func (c *jsonCheck) Run(ctx context.Context, rec reconcile.Recorder) (*reconcile.Result, error) {
	return reconcile.CompareJSONFiles(ctx, c.files[0], c.files[1],
		reconcile.WithRecorder(rec), reconcile.WithTolerance(c.tolerance))
}

type md5Check struct {
	baseCheck
	md5 *config.MD5Config
}

func (c *md5Check) Run(ctx context.Context, rec reconcile.Recorder) (*reconcile.Result, error) {
	return reconcile.CompareFingerprintLists(ctx, c.files[0], c.files[1],
		reconcile.WithRecorder(rec),
		reconcile.WithColumn(c.md5.Column),
		reconcile.WithSidecar(c.md5.SidecarEnabled()),
		reconcile.WithFixups(c.md5.Fixups()))
}

type multiplicityCheck struct {
	baseCheck
	exceptions reconcile.ExceptionSet
}

func (c *multiplicityCheck) Run(ctx context.Context, rec reconcile.Recorder) (*reconcile.Result, error) {
	return reconcile.CheckMultiplicity(ctx, c.files[0], c.files[1], c.exceptions, reconcile.WithRecorder(rec))
}

// newCheck creates the check matching a validated check configuration.
func newCheck(cc *config.CheckConfig) (Check, error) {
	paths, err := parser.ResolvePaths(cc.Files)
	if err != nil {
		return nil, err
	}
	if len(paths) != 2 {
		return nil, fmt.Errorf("expected two files, got %d", len(paths))
	}

	base := baseCheck{name: cc.Name, typ: cc.CheckTypeEnum(), files: [2]string{paths[0], paths[1]}}

	switch cc.CheckTypeEnum() {
	case config.CheckTypeJSON:
		return &jsonCheck{baseCheck: base, tolerance: cc.FloatTolerance()}, nil
	case config.CheckTypeMD5:
		md5 := cc.MD5
		if md5 == nil {
			md5 = &config.MD5Config{Column: reconcile.DefaultColumn}
		}
		return &md5Check{baseCheck: base, md5: md5}, nil
	case config.CheckTypeMultiplicity:
		return &multiplicityCheck{baseCheck: base, exceptions: cc.Exceptions()}, nil
	default:
		return nil, fmt.Errorf("unknown check type: %s", cc.Type)
	}
}
