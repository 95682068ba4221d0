package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ccollicutt/replaycheck/pkg/config"
	"github.com/ccollicutt/replaycheck/pkg/detector"
	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

func eventLines(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "2024-01-15 10:00:00 INFO: 10 %x event\n", 0xa000+i)
	}
	return sb.String()
}

func TestGenerateStarterConfig(t *testing.T) {
	tests := []struct {
		check reconcile.CheckType
		match *detector.FormatMatch
		want  []string
	}{
		{
			check: reconcile.TypeMultiplicity,
			match: &detector.FormatMatch{Format: &detector.LineFormat{Name: "fingerprint events"}, Confidence: 0.95},
			want:  []string{"type: multiplicity", "scenario: broker_restart", "fingerprint events", "95%"},
		},
		{
			check: reconcile.TypeMD5,
			match: &detector.FormatMatch{Format: &detector.LineFormat{Name: "md5 digest column"}, Confidence: 1, Column: 6},
			want:  []string{"type: md5", "column: 6"},
		},
		{
			check: reconcile.TypeJSON,
			match: &detector.FormatMatch{Format: &detector.LineFormat{Name: "JSON events"}, Confidence: 1},
			want:  []string{"type: json", "tolerance: 0.1"},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.check), func(t *testing.T) {
			content := generateStarterConfig("/var/log/engine.log", "/var/log/broker.log", tt.check, tt.match)
			for _, want := range append(tt.want, "/var/log/engine.log", "/var/log/broker.log") {
				if !strings.Contains(content, want) {
					t.Errorf("config missing %q:\n%s", want, content)
				}
			}

			// The starter suite must load as-is.
			cfg, err := config.Parse([]byte(content), ".yaml")
			if err != nil {
				t.Fatalf("generated config does not parse: %v", err)
			}
			if cfg.Checks[0].CheckTypeEnum() != config.CheckType(tt.check) {
				t.Errorf("check type = %s, want %s", cfg.Checks[0].Type, tt.check)
			}
		})
	}
}

func TestWriteStarterConfig_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "suite.yaml")
	logFile := writeFile(t, tmpDir, "engine.log", eventLines(5))

	result := detector.New().DetectFromLines(strings.Split(strings.TrimSpace(eventLines(5)), "\n"))

	var out strings.Builder
	if err := writeStarterConfig(&out, result, logFile, placeholderPeer, configPath); err != nil {
		t.Fatalf("writeStarterConfig() error = %v", err)
	}
	if !strings.Contains(out.String(), "Wrote starter config") {
		t.Errorf("output = %q", out.String())
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("reading config: %v", err)
	}
	if !strings.Contains(string(data), placeholderPeer) {
		t.Error("config should keep the placeholder peer as-is")
	}
	if !strings.Contains(string(data), logFile) {
		t.Errorf("config should reference %s", logFile)
	}
}

func TestWriteStarterConfig_NoOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeFile(t, tmpDir, "suite.yaml", "original")

	result := detector.New().DetectFromLines([]string{"x INFO: 10 aaa a"})
	err := writeStarterConfig(&strings.Builder{}, result, "a.log", "b.log", configPath)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("writeStarterConfig() error = %v, want already exists", err)
	}

	data, _ := os.ReadFile(configPath)
	if string(data) != "original" {
		t.Error("existing config was overwritten")
	}
}

func TestWriteStarterConfig_NoMatch(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "suite.yaml")

	result := detector.New().DetectFromLines([]string{"just text", "more text"})
	if err := writeStarterConfig(&strings.Builder{}, result, "a.log", "b.log", configPath); err == nil {
		t.Error("expected error with no detected format")
	}
	if fileExists(configPath) {
		t.Error("config written although nothing was detected")
	}
}

func TestRunDetect_Text(t *testing.T) {
	dir := t.TempDir()
	logFile := writeFile(t, dir, "engine.log", eventLines(10))

	out, err := runCommand(t, NewDetectCommand(), logFile)
	if err != nil {
		t.Fatalf("detect error = %v", err)
	}
	for _, want := range []string{"Detected Format: fingerprint events", "Recommended check: multiplicity", "100.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunDetect_NoMatch(t *testing.T) {
	dir := t.TempDir()
	logFile := writeFile(t, dir, "plain.log", "hello\nworld\n")

	out, err := runCommand(t, NewDetectCommand(), logFile)
	if err != nil {
		t.Fatalf("detect error = %v", err)
	}
	if !strings.Contains(out, "No event format detected") {
		t.Errorf("output = %s", out)
	}
}

func TestRunDetect_JSONOutput(t *testing.T) {
	dir := t.TempDir()
	logFile := writeFile(t, dir, "engine.log", jsonEvent1+"\n"+jsonEvent2+"\n")

	out, err := runCommand(t, NewDetectCommand(), "-o", "json", logFile)
	if err != nil {
		t.Fatalf("detect error = %v", err)
	}

	var parsed JSONOutput
	if err := json.Unmarshal([]byte(out), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if parsed.Recommended != "json" {
		t.Errorf("Recommended = %q, want json", parsed.Recommended)
	}
	if parsed.SampledLines != 2 || len(parsed.Matches) != 1 {
		t.Errorf("parsed = %+v", parsed)
	}
}

func TestRunDetect_WriteConfig(t *testing.T) {
	dir := t.TempDir()
	logFile := writeFile(t, dir, "engine.log", eventLines(3))
	peer := writeFile(t, dir, "broker.log", eventLines(3))
	configPath := filepath.Join(dir, "suite.yaml")

	if _, err := runCommand(t, NewDetectCommand(), "-w", configPath, logFile, peer); err != nil {
		t.Fatalf("detect error = %v", err)
	}

	// The generated suite is runnable against the two logs.
	if _, err := runCommand(t, NewRunCommand(), configPath); err != nil {
		t.Fatalf("run on generated suite error = %v", err)
	}
	if ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", ExitCode)
	}
}

func TestRunDetect_MissingFile(t *testing.T) {
	if _, err := runCommand(t, NewDetectCommand(), "/nonexistent/file.log"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRunDetect_UnknownOutput(t *testing.T) {
	dir := t.TempDir()
	logFile := writeFile(t, dir, "engine.log", eventLines(1))
	if _, err := runCommand(t, NewDetectCommand(), "-o", "xml", logFile); err == nil {
		t.Error("expected error for unknown output format")
	}
}
