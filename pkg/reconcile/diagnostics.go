package reconcile

import (
	"context"
	"log/slog"
	"sync"
)

// Level is the severity of a diagnostic.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Diagnostic codes.
const (
	CodeUnparseable  = "unparseable"
	CodeSentinel     = "sentinel_skipped"
	CodeSynthetic    = "synthetic_skipped"
	CodeFixup        = "fixup_skipped"
	CodeMismatch     = "mismatch"
	CodeMultiplicity = "multiplicity"
	CodeNoEvents     = "no_events"
	CodeTrailing     = "trailing"
)

// Diagnostic is one observation made while running a check.
type Diagnostic struct {
	Level   Level  `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`

	// Source and Index locate the line the diagnostic refers to, if any.
	Source string `json:"source,omitempty"`
	Index  int    `json:"index"`
}

// Recorder receives diagnostics from the checks.
type Recorder interface {
	Record(d Diagnostic)
}

// Collector keeps diagnostics in memory. Safe for concurrent use.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Record appends a diagnostic.
func (c *Collector) Record(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, d)
}

// Diagnostics returns a copy of everything recorded so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.items))
	copy(out, c.items)
	return out
}

// WithCode returns the recorded diagnostics carrying the given code.
func (c *Collector) WithCode(code string) []Diagnostic {
	var out []Diagnostic
	for _, d := range c.Diagnostics() {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// SlogRecorder writes diagnostics to a slog.Logger.
type SlogRecorder struct {
	Logger *slog.Logger
}

// NewSlogRecorder returns a recorder writing to logger, or to the default
// logger when logger is nil.
func NewSlogRecorder(logger *slog.Logger) *SlogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRecorder{Logger: logger}
}

// Record logs the diagnostic at its level.
func (r *SlogRecorder) Record(d Diagnostic) {
	attrs := []slog.Attr{slog.String("code", d.Code)}
	if d.Source != "" {
		attrs = append(attrs, slog.String("source", d.Source), slog.Int("index", d.Index))
	}
	r.Logger.LogAttrs(context.Background(), d.Level.slogLevel(), d.Message, attrs...)
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// multiRecorder fans a diagnostic out to several recorders.
type multiRecorder []Recorder

func (m multiRecorder) Record(d Diagnostic) {
	for _, r := range m {
		r.Record(d)
	}
}

// Tee returns a recorder forwarding to every non-nil recorder given.
func Tee(recorders ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type nopRecorder struct{}

func (nopRecorder) Record(Diagnostic) {}
