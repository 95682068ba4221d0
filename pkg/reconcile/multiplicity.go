package reconcile

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/ccollicutt/replaycheck/pkg/parser"
)

// Occurrence records how often a fingerprint was seen in one stream.
type Occurrence struct {
	Count int

	// Kind and FirstIndex are taken from the first occurrence, for diagnostics.
	Kind       uint64
	FirstIndex int
}

// FingerprintIndex maps fingerprints to their occurrences in one stream.
type FingerprintIndex struct {
	Source  string
	Entries map[string]*Occurrence

	// order lists fingerprints by first appearance so reports are stable.
	order []string

	Lines       int
	Excluded    int
	Unparseable int
}

// IndexFingerprints scans a stream and counts every fingerprint whose kind
// is not in the exception set. Lines that do not match the fingerprint
// pattern are ignored.
func IndexFingerprints(ctx context.Context, src parser.LineSource, set ExceptionSet, rec Recorder) (*FingerprintIndex, error) {
	if rec == nil {
		rec = nopRecorder{}
	}

	idx := &FingerprintIndex{Entries: make(map[string]*Occurrence)}

	for {
		line, err := src.Next(ctx)
		if err == io.EOF {
			return idx, nil
		}
		if err != nil {
			return nil, err
		}

		idx.Source = line.Source
		idx.Lines++

		ev, ok := parser.ExtractEvent(line.Content)
		if !ok || line.Truncated {
			idx.Unparseable++
			rec.Record(Diagnostic{
				Level:   LevelDebug,
				Code:    CodeUnparseable,
				Message: "line does not carry an event fingerprint",
				Source:  line.Source,
				Index:   line.Index,
			})
			continue
		}

		if set.Contains(ev.Kind) {
			idx.Excluded++
			continue
		}

		if occ, seen := idx.Entries[ev.Fingerprint]; seen {
			occ.Count++
			continue
		}
		idx.Entries[ev.Fingerprint] = &Occurrence{Count: 1, Kind: ev.Kind, FirstIndex: line.Index}
		idx.order = append(idx.order, ev.Fingerprint)
	}
}

// CountValues returns the distinct occurrence counts in ascending order.
// The multiplicity invariant holds when this is exactly [1].
func (ix *FingerprintIndex) CountValues() []int {
	seen := make(map[int]bool)
	var values []int
	for _, occ := range ix.Entries {
		if !seen[occ.Count] {
			seen[occ.Count] = true
			values = append(values, occ.Count)
		}
	}
	sort.Ints(values)
	return values
}

// Unique reports whether every retained fingerprint occurred exactly once.
// An index with no retained fingerprints does not satisfy the invariant.
func (ix *FingerprintIndex) Unique() bool {
	values := ix.CountValues()
	return len(values) == 1 && values[0] == 1
}

// Violations returns the fingerprints whose count is not 1, in order of
// first appearance.
func (ix *FingerprintIndex) Violations() []string {
	var out []string
	for _, fp := range ix.order {
		if ix.Entries[fp].Count != 1 {
			out = append(out, fp)
		}
	}
	return out
}

// CheckMultiplicity asserts that in each of two logs every fingerprint of a
// kind outside set occurs exactly once. It detects duplicated deliveries,
// not losses.
func CheckMultiplicity(ctx context.Context, path1, path2 string, set ExceptionSet, opts ...Option) (*Result, error) {
	o := buildOptions(opts)

	indexes := make([]*FingerprintIndex, 0, 2)
	for _, path := range []string{path1, path2} {
		idx, err := indexFile(ctx, path, set, o.recorder)
		if err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}

	return EvaluateMultiplicity(indexes[0], indexes[1], o.recorder), nil
}

// EvaluateMultiplicity builds the verdict for two indexes.
func EvaluateMultiplicity(ix1, ix2 *FingerprintIndex, rec Recorder) *Result {
	if rec == nil {
		rec = nopRecorder{}
	}

	result := &Result{
		Check:   TypeMultiplicity,
		Sources: [2]string{ix1.Source, ix2.Source},
		Issues:  []Issue{},
		Stats: Stats{
			Lines1:       ix1.Lines,
			Lines2:       ix2.Lines,
			Unparseable1: ix1.Unparseable,
			Unparseable2: ix2.Unparseable,
			Retained1:    len(ix1.Entries),
			Retained2:    len(ix2.Entries),
			Excluded1:    ix1.Excluded,
			Excluded2:    ix2.Excluded,
			Counts1:      ix1.CountValues(),
			Counts2:      ix2.CountValues(),
		},
	}

	for i, ix := range []*FingerprintIndex{ix1, ix2} {
		stream := i + 1
		if ix.Unique() {
			continue
		}

		if len(ix.Entries) == 0 {
			msg := fmt.Sprintf("In lst%d: no retained events in '%s'", stream, ix.Source)
			rec.Record(Diagnostic{Level: LevelError, Code: CodeNoEvents, Message: msg, Source: ix.Source})
			result.Issues = append(result.Issues, Issue{
				Type:        IssueTypeNoEvents,
				Description: "no retained events to count",
				Context:     IssueContext{Stream: stream, Source: ix.Source},
			})
			continue
		}

		for _, fp := range ix.Violations() {
			occ := ix.Entries[fp]
			msg := fmt.Sprintf("In lst%d: Bad %s %d with type %x", stream, fp, occ.Count, occ.Kind)
			rec.Record(Diagnostic{Level: LevelError, Code: CodeMultiplicity, Message: msg, Source: ix.Source, Index: occ.FirstIndex})
			result.Issues = append(result.Issues, Issue{
				Type:        IssueTypeDuplicate,
				Description: fmt.Sprintf("fingerprint %s seen %d times", fp, occ.Count),
				Context: IssueContext{
					Stream:      stream,
					Source:      ix.Source,
					Index1:      occ.FirstIndex,
					Fingerprint: fp,
					Kind:        occ.Kind,
					Count:       occ.Count,
				},
			})
		}
	}

	result.Passed = len(result.Issues) == 0
	return result
}

func indexFile(ctx context.Context, path string, set ExceptionSet, rec Recorder) (*FingerprintIndex, error) {
	src := parser.NewFileSource(path)
	defer src.Close()

	idx, err := IndexFingerprints(ctx, src, set, rec)
	if err != nil {
		return nil, err
	}
	idx.Source = path
	return idx, nil
}

// CheckBrokerRestart runs the multiplicity check with the broker-restart
// exception set. Both files come from the same producer across a broker
// restart.
func CheckBrokerRestart(ctx context.Context, path1, path2 string, opts ...Option) (*Result, error) {
	return CheckMultiplicity(ctx, path1, path2, BrokerRestart(), opts...)
}

// CheckEngineRestart runs the multiplicity check with the engine-restart
// exception set.
func CheckEngineRestart(ctx context.Context, path1, path2 string, opts ...Option) (*Result, error) {
	return CheckMultiplicity(ctx, path1, path2, EngineRestart(), opts...)
}
