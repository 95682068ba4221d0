package reconcile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/replaycheck/pkg/parser"
)

const sentinelLine = `2024-01-15 [lua] {"_type": 4294901762, "category": 65535, "element": 2, "broker_id": 1, "broker_name": "", "enabled": true, "poller_id": 1, "poller_name": "Central"}`

func stream(source string, lines ...string) Stream {
	s := Stream{Source: source}
	for i, l := range lines {
		s.Lines = append(s.Lines, parser.LogLine{Content: l, Source: source, Index: i})
	}
	return s
}

func ev(payload string) string {
	return "2024-01-15 [lua] " + payload
}

func TestAlignStreams_Identical(t *testing.T) {
	lines := []string{
		ev(`{"_type": 65565, "host_id": 1}`),
		ev(`{"_type": 65566, "host_id": 1, "state": 0}`),
	}

	result := AlignStreams(stream("e.log", lines...), stream("b.log", lines...))
	if !result.Passed {
		t.Fatalf("AlignStreams() failed: %+v", result.Issues)
	}
	if result.Stats.Compared != 2 {
		t.Errorf("Compared = %d, want 2", result.Stats.Compared)
	}
}

func TestAlignStreams_EquivalentWithinTolerance(t *testing.T) {
	left := stream("e.log", ev(`{"_type": 65565, "latency": 0.25}`))
	right := stream("b.log", ev(`{"latency": 0.3, "_type": 65565}`))

	result := AlignStreams(left, right)
	if !result.Passed {
		t.Fatalf("AlignStreams() failed: %+v", result.Issues)
	}
}

func TestAlignStreams_MismatchReportsBothSides(t *testing.T) {
	left := stream("e.log",
		ev(`{"_type": 1, "a": 1}`),
		ev(`{"_type": 1, "a": 2}`),
	)
	right := stream("b.log",
		ev(`{"_type": 1, "a": 1}`),
		ev(`{"_type": 1, "a": 2, "b": 2}`),
	)

	col := &Collector{}
	result := AlignStreams(left, right, WithRecorder(col))
	if result.Passed {
		t.Fatal("AlignStreams() passed, want field-count mismatch")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("Issues = %d, want 1", len(result.Issues))
	}

	issue := result.Issues[0]
	if issue.Type != IssueTypeMismatch {
		t.Errorf("Type = %v, want %v", issue.Type, IssueTypeMismatch)
	}
	if issue.Context.Index1 != 1 || issue.Context.Index2 != 1 {
		t.Errorf("indices = %d/%d, want 1/1", issue.Context.Index1, issue.Context.Index2)
	}
	if issue.Context.Raw2 != `{"_type": 1, "a": 2, "b": 2}` {
		t.Errorf("Raw2 = %s", issue.Context.Raw2)
	}
	if len(col.WithCode(CodeMismatch)) != 1 {
		t.Error("mismatch diagnostic not recorded")
	}
}

func TestAlignStreams_SkipsUnparseableLines(t *testing.T) {
	left := stream("e.log",
		"lua connector starting",
		ev(`{"_type": 1, "a": 1}`),
	)
	right := stream("b.log",
		ev(`{"_type": 1, "a": 1}`),
	)

	col := &Collector{}
	result := AlignStreams(left, right, WithRecorder(col))
	if !result.Passed {
		t.Fatalf("AlignStreams() failed: %+v", result.Issues)
	}
	if result.Stats.Unparseable1 != 1 {
		t.Errorf("Unparseable1 = %d, want 1", result.Stats.Unparseable1)
	}

	diags := col.WithCode(CodeUnparseable)
	if len(diags) != 1 {
		t.Fatalf("unparseable diagnostics = %d, want 1", len(diags))
	}
	if diags[0].Index != 0 || diags[0].Source != "e.log" {
		t.Errorf("diagnostic = %+v, want e.log line 0", diags[0])
	}
}

func TestAlignStreams_TruncatedLineIsUnparseable(t *testing.T) {
	left := stream("e.log", ev(`{"_type": 1, "a": 1}`))
	// The head of a cut line can still look like a complete record.
	left.Lines = append([]parser.LogLine{{Content: ev(`{"_type": 2}`), Source: "e.log", Index: 0, Truncated: true}}, left.Lines...)
	left.Lines[1].Index = 1
	right := stream("b.log", ev(`{"_type": 1, "a": 1}`))

	col := &Collector{}
	result := AlignStreams(left, right, WithRecorder(col))
	if !result.Passed {
		t.Fatalf("AlignStreams() failed: %+v", result.Issues)
	}
	if result.Stats.Unparseable1 != 1 || result.Stats.Compared != 1 {
		t.Errorf("stats = %+v, want one unparseable and one compared", result.Stats)
	}
	diags := col.WithCode(CodeUnparseable)
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "too long") {
		t.Errorf("diagnostics = %+v", diags)
	}
}

func TestAlignStreams_InvalidJSONIsUnparseable(t *testing.T) {
	left := stream("e.log", ev(`{"_type": 1,}`), ev(`{"_type": 1}`))
	right := stream("b.log", ev(`{"_type": 1}`))

	result := AlignStreams(left, right)
	if !result.Passed {
		t.Fatalf("AlignStreams() failed: %+v", result.Issues)
	}
	if result.Stats.Unparseable1 != 1 {
		t.Errorf("Unparseable1 = %d, want 1", result.Stats.Unparseable1)
	}
}

func TestAlignStreams_SentinelIdempotence(t *testing.T) {
	base := []string{
		ev(`{"_type": 1, "a": 1}`),
		ev(`{"_type": 2, "b": 2}`),
	}

	for n := 0; n <= 3; n++ {
		withSentinels := []string{base[0]}
		for i := 0; i < n; i++ {
			withSentinels = append(withSentinels, sentinelLine)
		}
		withSentinels = append(withSentinels, base[1])

		// Sentinels on either side must not change the outcome.
		for _, swap := range []bool{false, true} {
			left, right := stream("e.log", withSentinels...), stream("b.log", base...)
			if swap {
				left, right = stream("e.log", base...), stream("b.log", withSentinels...)
			}

			result := AlignStreams(left, right)
			if !result.Passed {
				t.Errorf("n=%d swap=%v: AlignStreams() failed: %+v", n, swap, result.Issues)
			}
			if result.Stats.Compared != 2 {
				t.Errorf("n=%d swap=%v: Compared = %d, want 2", n, swap, result.Stats.Compared)
			}
			if got := result.Stats.Skipped1 + result.Stats.Skipped2; got != n {
				t.Errorf("n=%d swap=%v: skipped = %d, want %d", n, swap, got, n)
			}
		}
	}
}

func TestAlignStreams_SyntheticEventsSkippedUnilaterally(t *testing.T) {
	left := stream("e.log",
		ev(`{"_type": 1, "a": 1}`),
		ev(`{"_type": 131081, "x": 1}`),
		ev(`{"_type": 2, "b": 2}`),
	)
	right := stream("b.log",
		ev(`{"_type": 4294901762, "category": 3}`),
		ev(`{"_type": 1, "a": 1}`),
		ev(`{"_type": 2, "b": 2}`),
	)

	col := &Collector{}
	result := AlignStreams(left, right, WithRecorder(col))
	if !result.Passed {
		t.Fatalf("AlignStreams() failed: %+v", result.Issues)
	}
	if result.Stats.Skipped1 != 1 || result.Stats.Skipped2 != 1 {
		t.Errorf("skipped = %d/%d, want 1/1", result.Stats.Skipped1, result.Stats.Skipped2)
	}
	if len(col.WithCode(CodeSynthetic)) != 2 {
		t.Errorf("synthetic diagnostics = %d, want 2", len(col.WithCode(CodeSynthetic)))
	}
}

func TestAlignStreams_IdenticalSyntheticEventsAreConsumedTogether(t *testing.T) {
	line := ev(`{"_type": 131081, "x": 1}`)
	result := AlignStreams(stream("e.log", line), stream("b.log", line))
	if !result.Passed || result.Stats.Compared != 1 {
		t.Errorf("result = %+v, want one compared pair", result)
	}
}

// Every step must advance a cursor even when both current lines are
// skippable at once.
func TestAlignStreams_TerminatesWhenBothSidesSkippable(t *testing.T) {
	tests := []struct {
		name        string
		left, right []string
	}{
		{
			name:  "both sentinels",
			left:  []string{sentinelLine, sentinelLine},
			right: []string{sentinelLine},
		},
		{
			name:  "both unparseable",
			left:  []string{"banner", "banner"},
			right: []string{"banner", "banner", "banner"},
		},
		{
			name:  "both synthetic but different",
			left:  []string{ev(`{"_type": 131081, "x": 1}`)},
			right: []string{ev(`{"_type": 4294901762, "x": 2}`)},
		},
		{
			name:  "mixed",
			left:  []string{"banner", sentinelLine, ev(`{"_type": 131081}`)},
			right: []string{sentinelLine, "banner", ev(`{"_type": 4294901762}`)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := stream("e.log", tt.left...), stream("b.log", tt.right...)
			result := AlignStreams(left, right)
			if !result.Passed {
				t.Errorf("AlignStreams() failed: %+v", result.Issues)
			}
			consumed1 := result.Stats.Lines1 - result.Stats.Trailing1
			consumed2 := result.Stats.Lines2 - result.Stats.Trailing2
			steps := result.Stats.Skipped1 + result.Stats.Skipped2 + result.Stats.Compared
			if consumed1+consumed2 < steps {
				t.Errorf("steps %d exceed consumed lines %d", steps, consumed1+consumed2)
			}
			if result.Stats.Trailing1 != 0 && result.Stats.Trailing2 != 0 {
				t.Error("neither stream was exhausted")
			}
		})
	}
}

func TestAlignStreams_TrailingContentTolerated(t *testing.T) {
	left := stream("e.log",
		ev(`{"_type": 1, "a": 1}`),
	)
	right := stream("b.log",
		ev(`{"_type": 1, "a": 1}`),
		ev(`{"_type": 2, "b": 2}`),
		ev(`{"_type": 3, "c": 3}`),
	)

	col := &Collector{}
	result := AlignStreams(left, right, WithRecorder(col))
	if !result.Passed {
		t.Fatalf("AlignStreams() failed: %+v", result.Issues)
	}
	if result.Stats.Trailing2 != 2 {
		t.Errorf("Trailing2 = %d, want 2", result.Stats.Trailing2)
	}
	if len(col.WithCode(CodeTrailing)) != 1 {
		t.Error("trailing diagnostic not recorded")
	}
}

func TestAlignStreams_EmptyStreams(t *testing.T) {
	result := AlignStreams(stream("e.log"), stream("b.log", ev(`{"_type": 1}`)))
	if !result.Passed {
		t.Errorf("AlignStreams() with an empty stream failed: %+v", result.Issues)
	}
}

func TestAlignStreams_Deterministic(t *testing.T) {
	left := stream("e.log",
		"banner",
		ev(`{"_type": 1, "a": 1.0}`),
		sentinelLine,
		ev(`{"_type": 131081}`),
		ev(`{"_type": 2, "b": "x"}`),
		ev(`{"_type": 3, "c": 3}`),
	)
	right := stream("b.log",
		ev(`{"_type": 4294901762, "category": 1}`),
		ev(`{"_type": 1, "a": 1.05}`),
		ev(`{"_type": 2, "b": "x"}`),
		ev(`{"_type": 3, "c": 4}`),
	)

	first := &Collector{}
	want := AlignStreams(left, right, WithRecorder(first))
	for i := 0; i < 10; i++ {
		col := &Collector{}
		got := AlignStreams(left, right, WithRecorder(col))
		if got.Passed != want.Passed || got.Stats.Compared != want.Stats.Compared ||
			got.Stats.Skipped1 != want.Stats.Skipped1 || got.Stats.Skipped2 != want.Stats.Skipped2 {
			t.Fatalf("run %d: result %+v differs from %+v", i, got, want)
		}
		if len(col.Diagnostics()) != len(first.Diagnostics()) {
			t.Fatalf("run %d: %d diagnostics, want %d", i, len(col.Diagnostics()), len(first.Diagnostics()))
		}
	}
	if want.Passed {
		t.Error("expected mismatch on the last pair")
	}
	if want.Issues[0].Context.Index1 != 5 || want.Issues[0].Context.Index2 != 3 {
		t.Errorf("mismatch at %d/%d, want 5/3", want.Issues[0].Context.Index1, want.Issues[0].Context.Index2)
	}
}

func TestCompareJSONFiles(t *testing.T) {
	dir := t.TempDir()
	engine := filepath.Join(dir, "engine.log")
	broker := filepath.Join(dir, "broker.log")

	content := strings.Join([]string{
		ev(`{"_type": 65565, "host_id": 1}`),
		ev(`{"_type": 65566, "host_id": 1, "perf": 12.5}`),
	}, "\n") + "\n"
	brokerContent := sentinelLine + "\n" + strings.Replace(content, "12.5", "12.55", 1)

	if err := os.WriteFile(engine, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(broker, []byte(brokerContent), 0644); err != nil {
		t.Fatal(err)
	}

	result, err := CompareJSONFiles(context.Background(), engine, broker)
	if err != nil {
		t.Fatalf("CompareJSONFiles() error = %v", err)
	}
	if !result.Passed {
		t.Errorf("CompareJSONFiles() failed: %+v", result.Issues)
	}
	if result.Sources != [2]string{engine, broker} {
		t.Errorf("Sources = %v", result.Sources)
	}
}

func TestCompareJSONFiles_MissingFile(t *testing.T) {
	_, err := CompareJSONFiles(context.Background(), "/nonexistent/e.log", "/nonexistent/b.log")
	if err == nil {
		t.Error("CompareJSONFiles() expected error for missing file")
	}
}
