package reconcile

// DefaultTolerance is the absolute tolerance applied to float fields.
const DefaultTolerance = 0.1

// DefaultColumn is the 1-based column projected by the md5 check.
const DefaultColumn = 8

type options struct {
	recorder  Recorder
	tolerance float64
	column    int
	fixups    SequenceFixups
	sidecar   bool
}

// Option configures a check.
type Option func(*options)

// WithRecorder sends diagnostics to rec instead of discarding them.
func WithRecorder(rec Recorder) Option {
	return func(o *options) {
		if rec != nil {
			o.recorder = rec
		}
	}
}

// WithTolerance sets the absolute tolerance for float fields.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		if tol >= 0 {
			o.tolerance = tol
		}
	}
}

// WithColumn sets the column projected by the md5 check.
func WithColumn(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.column = n
		}
	}
}

// WithFixups replaces the md5 check fixups.
func WithFixups(f SequenceFixups) Option {
	return func(o *options) {
		o.fixups = f
	}
}

// WithSidecar controls whether the md5 check writes <file>.md5 projections.
func WithSidecar(enabled bool) Option {
	return func(o *options) {
		o.sidecar = enabled
	}
}

func buildOptions(opts []Option) *options {
	o := &options{
		recorder:  nopRecorder{},
		tolerance: DefaultTolerance,
		column:    DefaultColumn,
		fixups:    LegacyLuaFixups(),
		sidecar:   true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
