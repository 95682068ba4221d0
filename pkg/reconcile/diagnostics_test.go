package reconcile

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestCollector(t *testing.T) {
	c := &Collector{}
	c.Record(Diagnostic{Level: LevelDebug, Code: CodeSentinel, Message: "a"})
	c.Record(Diagnostic{Level: LevelError, Code: CodeMismatch, Message: "b"})
	c.Record(Diagnostic{Level: LevelDebug, Code: CodeSentinel, Message: "c"})

	if got := len(c.Diagnostics()); got != 3 {
		t.Errorf("Diagnostics() = %d, want 3", got)
	}
	if got := len(c.WithCode(CodeSentinel)); got != 2 {
		t.Errorf("WithCode(sentinel) = %d, want 2", got)
	}

	snapshot := c.Diagnostics()
	snapshot[0].Message = "changed"
	if c.Diagnostics()[0].Message != "a" {
		t.Error("Diagnostics() returned the internal slice")
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := &Collector{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Record(Diagnostic{Code: CodeTrailing})
			}
		}()
	}
	wg.Wait()

	if got := len(c.Diagnostics()); got != 800 {
		t.Errorf("Diagnostics() = %d, want 800", got)
	}
}

func TestSlogRecorder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	r := NewSlogRecorder(logger)

	r.Record(Diagnostic{Level: LevelDebug, Code: CodeSentinel, Message: "hidden"})
	r.Record(Diagnostic{Level: LevelError, Code: CodeMismatch, Message: "events differ", Source: "a.log", Index: 4})

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug diagnostic logged at info level")
	}
	for _, want := range []string{"level=ERROR", "events differ", "code=mismatch", "source=a.log", "index=4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestTee(t *testing.T) {
	a, b := &Collector{}, &Collector{}
	r := Tee(a, nil, b)
	r.Record(Diagnostic{Code: CodeFixup})

	if len(a.Diagnostics()) != 1 || len(b.Diagnostics()) != 1 {
		t.Error("Tee() did not forward to every recorder")
	}
}
