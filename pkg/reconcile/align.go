package reconcile

import (
	"context"
	"fmt"

	"github.com/ccollicutt/replaycheck/pkg/parser"
)

// Stream is a fully read log.
type Stream struct {
	Source string
	Lines  []parser.LogLine
}

// alignAction is what one step of the aligner does.
type alignAction int

const (
	actionAdvanceBoth alignAction = iota
	actionSkipUnparseable
	actionSkipSentinel
	actionSkipSynthetic
	actionMismatch
)

// alignStep is a single transition. side is the cursor a skip applies to.
type alignStep struct {
	action alignAction
	side   *cursor
	reason string
}

// cursor walks one stream and caches the extraction of its current line.
type cursor struct {
	stream int
	source string
	lines  []parser.LogLine
	pos    int

	cachedPos int
	rec       parser.JSONRecord
	ok        bool
}

func newCursor(stream int, s Stream) *cursor {
	return &cursor{stream: stream, source: s.Source, lines: s.Lines, cachedPos: -1}
}

func (c *cursor) done() bool { return c.pos >= len(c.lines) }

func (c *cursor) line() parser.LogLine { return c.lines[c.pos] }

func (c *cursor) record() (parser.JSONRecord, bool) {
	if c.cachedPos != c.pos {
		if ln := c.lines[c.pos]; ln.Truncated {
			c.rec, c.ok = parser.JSONRecord{}, false
		} else {
			c.rec, c.ok = parser.ExtractJSON(ln.Content)
		}
		c.cachedPos = c.pos
	}
	return c.rec, c.ok
}

// nextStep decides the transition for the current cursor pair. Skip rules
// are checked first on stream 1, then on stream 2.
func nextStep(left, right *cursor, tol float64) alignStep {
	for _, c := range []*cursor{left, right} {
		rec, ok := c.record()
		if !ok {
			return alignStep{action: actionSkipUnparseable, side: c}
		}
		if IsSentinel(rec) {
			return alignStep{action: actionSkipSentinel, side: c}
		}
	}

	l, _ := left.record()
	r, _ := right.record()
	if l.Raw == r.Raw {
		return alignStep{action: actionAdvanceBoth}
	}

	if typ, ok := SyntheticType(r.Fields); ok {
		return alignStep{action: actionSkipSynthetic, side: right, reason: SyntheticTypes[typ]}
	}
	if typ, ok := SyntheticType(l.Fields); ok {
		return alignStep{action: actionSkipSynthetic, side: left, reason: SyntheticTypes[typ]}
	}

	if ok, reason := Equivalent(l.Fields, r.Fields, tol); !ok {
		return alignStep{action: actionMismatch, reason: reason}
	}
	return alignStep{action: actionAdvanceBoth}
}

// AlignStreams walks two JSON-payload streams in lockstep.
//
// Every step advances at least one cursor or stops, so the walk always
// terminates. The check passes when one of the streams is exhausted without
// a mismatch; lines left over in the other stream are reported as a
// diagnostic but do not fail the check.
func AlignStreams(left, right Stream, opts ...Option) *Result {
	o := buildOptions(opts)
	rec := o.recorder

	result := &Result{
		Check:   TypeJSON,
		Sources: [2]string{left.Source, right.Source},
		Issues:  []Issue{},
		Stats: Stats{
			Lines1: len(left.Lines),
			Lines2: len(right.Lines),
		},
	}

	c1 := newCursor(1, left)
	c2 := newCursor(2, right)

	for !c1.done() && !c2.done() {
		step := nextStep(c1, c2, o.tolerance)

		switch step.action {
		case actionAdvanceBoth:
			result.Stats.Compared++
			c1.pos++
			c2.pos++

		case actionSkipUnparseable:
			ln := step.side.line()
			msg := fmt.Sprintf("content at line %d of '%s' is not JSON: %s", ln.Index, step.side.source, ln.Content)
			if ln.Truncated {
				msg = fmt.Sprintf("line %d of '%s' is too long to be compared", ln.Index, step.side.source)
			}
			rec.Record(Diagnostic{
				Level:   LevelInfo,
				Code:    CodeUnparseable,
				Message: msg,
				Source:  step.side.source,
				Index:   ln.Index,
			})
			result.Stats.addSkip(step.side.stream, true)
			step.side.pos++

		case actionSkipSentinel:
			rec.Record(Diagnostic{
				Level:   LevelDebug,
				Code:    CodeSentinel,
				Message: "skipping poller instance record",
				Source:  step.side.source,
				Index:   step.side.line().Index,
			})
			result.Stats.addSkip(step.side.stream, false)
			step.side.pos++

		case actionSkipSynthetic:
			rec.Record(Diagnostic{
				Level:   LevelDebug,
				Code:    CodeSynthetic,
				Message: "skipping " + step.reason + " event",
				Source:  step.side.source,
				Index:   step.side.line().Index,
			})
			result.Stats.addSkip(step.side.stream, false)
			step.side.pos++

		case actionMismatch:
			l, _ := c1.record()
			r, _ := c2.record()
			i1, i2 := c1.line().Index, c2.line().Index
			msg := fmt.Sprintf("Line %d in '%s' and line %d in '%s' do not match (%s), json contents are respectively\n%s\n%s",
				i1, left.Source, i2, right.Source, step.reason, l.Raw, r.Raw)
			rec.Record(Diagnostic{Level: LevelError, Code: CodeMismatch, Message: msg, Source: left.Source, Index: i1})
			result.Issues = append(result.Issues, Issue{
				Type:        IssueTypeMismatch,
				Description: step.reason,
				Context: IssueContext{
					Index1: i1,
					Index2: i2,
					Raw1:   l.Raw,
					Raw2:   r.Raw,
				},
			})
			return result
		}
	}

	result.Stats.Trailing1 = len(left.Lines) - c1.pos
	result.Stats.Trailing2 = len(right.Lines) - c2.pos
	for _, c := range []*cursor{c1, c2} {
		if n := len(c.lines) - c.pos; n > 0 {
			rec.Record(Diagnostic{
				Level:   LevelInfo,
				Code:    CodeTrailing,
				Message: fmt.Sprintf("%d trailing line(s) of '%s' not compared", n, c.source),
				Source:  c.source,
				Index:   c.line().Index,
			})
		}
	}

	result.Passed = true
	return result
}

func (s *Stats) addSkip(stream int, unparseable bool) {
	if stream == 1 {
		s.Skipped1++
		if unparseable {
			s.Unparseable1++
		}
		return
	}
	s.Skipped2++
	if unparseable {
		s.Unparseable2++
	}
}

// CompareJSONFiles aligns two JSON-payload log files, the first produced by
// the engine and the second by the broker.
func CompareJSONFiles(ctx context.Context, path1, path2 string, opts ...Option) (*Result, error) {
	left, err := readStream(ctx, path1)
	if err != nil {
		return nil, err
	}
	right, err := readStream(ctx, path2)
	if err != nil {
		return nil, err
	}
	return AlignStreams(left, right, opts...), nil
}

func readStream(ctx context.Context, path string) (Stream, error) {
	lines, err := parser.ReadLines(ctx, path)
	if err != nil {
		return Stream{}, err
	}
	return Stream{Source: path, Lines: lines}, nil
}
