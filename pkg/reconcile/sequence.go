package reconcile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ccollicutt/replaycheck/pkg/parser"
)

// PairFixup is a two-entry synthetic run skipped on the second stream.
type PairFixup struct {
	First  string `yaml:"first" json:"first"`
	Second string `yaml:"second" json:"second"`
}

// SequenceFixups lists the known asymmetric entries of a fingerprint list
// comparison. They are tied to a fixture, not to the algorithm.
type SequenceFixups struct {
	// SkipLeft entries are skipped when they appear on the first stream.
	SkipLeft []string `yaml:"skip_left,omitempty" json:"skip_left,omitempty"`

	// SkipRightPairs are skipped as a pair on the second stream. A First
	// entry not followed by its Second is a failure.
	SkipRightPairs []PairFixup `yaml:"skip_right_pairs,omitempty" json:"skip_right_pairs,omitempty"`
}

// LegacyLuaFixups returns the fixups of the Lua stream connector fixture:
// the first log mentions test1.lua, the second reloads test.lua and logs its
// digest.
func LegacyLuaFixups() SequenceFixups {
	return SequenceFixups{
		SkipLeft: []string{"test1.lua"},
		SkipRightPairs: []PairFixup{
			{First: "test.lua", Second: "055b1a6348a16305474b60de439a0efd"},
		},
	}
}

func (f SequenceFixups) skipLeft(entry string) bool {
	for _, s := range f.SkipLeft {
		if s == entry {
			return true
		}
	}
	return false
}

func (f SequenceFixups) rightPair(entry string) (PairFixup, bool) {
	for _, p := range f.SkipRightPairs {
		if p.First == entry {
			return p, true
		}
	}
	return PairFixup{}, false
}

type seqAction int

const (
	seqAdvanceBoth seqAction = iota
	seqSkipLeft
	seqSkipRightPair
	seqFixupBroken
	seqMismatch
)

func nextSeqStep(left, right []string, i, j int, f SequenceFixups) seqAction {
	if f.skipLeft(left[i]) {
		return seqSkipLeft
	}
	if p, ok := f.rightPair(right[j]); ok {
		if j+1 < len(right) && right[j+1] == p.Second {
			return seqSkipRightPair
		}
		return seqFixupBroken
	}
	if left[i] == right[j] {
		return seqAdvanceBoth
	}
	return seqMismatch
}

// CompareSequences compares two projected sequences positionally. Both must
// be fully consumed for the check to pass.
func CompareSequences(left, right Stream, fixups SequenceFixups, rec Recorder) *Result {
	if rec == nil {
		rec = nopRecorder{}
	}

	l := contents(left.Lines)
	r := contents(right.Lines)

	result := &Result{
		Check:   TypeMD5,
		Sources: [2]string{left.Source, right.Source},
		Issues:  []Issue{},
		Stats:   Stats{Lines1: len(l), Lines2: len(r)},
	}

	i, j := 0, 0
	for i < len(l) && j < len(r) {
		switch nextSeqStep(l, r, i, j, fixups) {
		case seqAdvanceBoth:
			result.Stats.Compared++
			i++
			j++

		case seqSkipLeft:
			rec.Record(Diagnostic{Level: LevelDebug, Code: CodeFixup, Message: "skipping " + l[i], Source: left.Source, Index: i})
			result.Stats.Skipped1++
			i++

		case seqSkipRightPair:
			rec.Record(Diagnostic{Level: LevelDebug, Code: CodeFixup, Message: "skipping " + r[j] + " " + r[j+1], Source: right.Source, Index: j})
			result.Stats.Skipped2 += 2
			j += 2

		case seqFixupBroken:
			msg := fmt.Sprintf("line %d of '%s' is %s but is not followed by its expected digest", j, right.Source, r[j])
			rec.Record(Diagnostic{Level: LevelError, Code: CodeMismatch, Message: msg, Source: right.Source, Index: j})
			result.Issues = append(result.Issues, Issue{
				Type:        IssueTypeFixupBroken,
				Description: msg,
				Context:     IssueContext{Stream: 2, Source: right.Source, Index1: i, Index2: j, Raw2: r[j]},
			})
			return result

		case seqMismatch:
			msg := fmt.Sprintf("line %d of '%s' (%s) and line %d of '%s' (%s) differ",
				i, left.Source, l[i], j, right.Source, r[j])
			rec.Record(Diagnostic{Level: LevelError, Code: CodeMismatch, Message: msg, Source: left.Source, Index: i})
			result.Issues = append(result.Issues, Issue{
				Type:        IssueTypeMismatch,
				Description: "fingerprints differ",
				Context:     IssueContext{Index1: i, Index2: j, Raw1: l[i], Raw2: r[j]},
			})
			return result
		}
	}

	result.Stats.Trailing1 = len(l) - i
	result.Stats.Trailing2 = len(r) - j
	if i != len(l) || j != len(r) {
		msg := fmt.Sprintf("not at the end of files idx1 = %d/%d or idx2 = %d/%d", i, len(l), j, len(r))
		rec.Record(Diagnostic{Level: LevelError, Code: CodeTrailing, Message: msg})
		result.Issues = append(result.Issues, Issue{
			Type:        IssueTypeUnconsumed,
			Description: msg,
			Context:     IssueContext{Index1: i, Index2: j},
		})
		return result
	}

	result.Passed = true
	return result
}

func contents(lines []parser.LogLine) []string {
	out := make([]string, len(lines))
	for i, ln := range lines {
		out[i] = ln.Content
	}
	return out
}

// ProjectColumn reads a log and keeps one whitespace-separated column per
// line. When sidecar is set the projection is also written to <path>.md5.
func ProjectColumn(ctx context.Context, path string, column int, sidecar bool) (Stream, error) {
	lines, err := parser.ReadLines(ctx, path)
	if err != nil {
		return Stream{}, err
	}

	projected := make([]parser.LogLine, len(lines))
	var buf strings.Builder
	for i, ln := range lines {
		col := parser.Column(ln.Content, column)
		projected[i] = parser.LogLine{Content: col, Source: path, Index: ln.Index}
		buf.WriteString(col)
		buf.WriteByte('\n')
	}

	if sidecar {
		out := path + ".md5"
		if err := os.WriteFile(out, []byte(buf.String()), 0o644); err != nil { // #nosec G306 -- scratch output next to the input
			return Stream{}, fmt.Errorf("writing %s: %w", out, err)
		}
	}

	return Stream{Source: path, Lines: projected}, nil
}

// CompareFingerprintLists projects one column of each log (the md5 digest
// by default) and compares the two lists positionally.
func CompareFingerprintLists(ctx context.Context, path1, path2 string, opts ...Option) (*Result, error) {
	o := buildOptions(opts)

	left, err := ProjectColumn(ctx, path1, o.column, o.sidecar)
	if err != nil {
		return nil, err
	}
	right, err := ProjectColumn(ctx, path2, o.column, o.sidecar)
	if err != nil {
		return nil, err
	}

	return CompareSequences(left, right, o.fixups, o.recorder), nil
}
