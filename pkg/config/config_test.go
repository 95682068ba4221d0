package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
checks:
  - name: replay-after-broker-restart
    type: multiplicity
    scenario: broker_restart
    files: [engine.log, broker.log]
    extra_excluded_kinds: [65560]
  - name: engine-vs-broker
    type: json
    files: [engine.json.log, broker.json.log]
  - name: lua-md5
    type: md5
    files: [a.log, b.log]
    md5:
      column: 9
      skip_left: [test1.lua]
      skip_right_pairs: [{first: test.lua, second: 055b1a6348a16305474b60de439a0efd}]
max_parallel: 2
`
	path := writeTempFile(t, "suite.yaml", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Checks) != 3 {
		t.Fatalf("Checks = %d, want 3", len(cfg.Checks))
	}
	if cfg.MaxParallel != 2 {
		t.Errorf("MaxParallel = %d, want 2", cfg.MaxParallel)
	}

	mult := cfg.Checks[0]
	if mult.CheckTypeEnum() != CheckTypeMultiplicity {
		t.Errorf("type = %q, want multiplicity", mult.Type)
	}
	set := mult.Exceptions()
	if !set.Contains(65544) || !set.Contains(65560) {
		t.Errorf("exceptions = %v, want broker_restart kinds plus 65560", set.Kinds())
	}

	if cfg.Checks[1].FloatTolerance() != reconcile.DefaultTolerance {
		t.Errorf("Tolerance = %v, want default %v", cfg.Checks[1].FloatTolerance(), reconcile.DefaultTolerance)
	}

	md5 := cfg.Checks[2].MD5
	if md5.Column != 9 {
		t.Errorf("Column = %d, want 9", md5.Column)
	}
	fix := md5.Fixups()
	if len(fix.SkipRightPairs) != 1 || fix.SkipRightPairs[0].Second != "055b1a6348a16305474b60de439a0efd" {
		t.Errorf("Fixups() = %+v", fix)
	}
}

func TestLoad_JSONC(t *testing.T) {
	content := `{
  // engine and broker must agree
  "checks": [
    {"name": "pair", "type": "json", "files": ["a.log", "b.log"], "tolerance": 0.5},
  ],
}`
	path := writeTempFile(t, "suite.jsonc", content)
	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Checks) != 1 || cfg.Checks[0].FloatTolerance() != 0.5 {
		t.Errorf("Checks = %+v", cfg.Checks)
	}
	if cfg.MaxParallel != DefaultMaxParallel {
		t.Errorf("MaxParallel = %d, want default", cfg.MaxParallel)
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestParse_ExplicitZeroTolerance(t *testing.T) {
	cfg, err := Parse([]byte(`
checks:
  - name: exact
    type: json
    files: [a.log, b.log]
    tolerance: 0
  - name: default
    type: json
    files: [a.log, b.log]
`), ".yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := cfg.Checks[0].FloatTolerance(); got != 0 {
		t.Errorf("explicit tolerance = %v, want 0", got)
	}
	if got := cfg.Checks[1].FloatTolerance(); got != reconcile.DefaultTolerance {
		t.Errorf("omitted tolerance = %v, want %v", got, reconcile.DefaultTolerance)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(context.Background(), "/nonexistent/suite.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "invalid.yaml", `invalid: yaml: content: [`)
	_, err := Load(context.Background(), path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestValidate_Errors(t *testing.T) {
	pair := []string{"a.log", "b.log"}
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"no checks", &Config{}},
		{"missing name", &Config{Checks: []CheckConfig{{Type: "json", Files: pair}}}},
		{"invalid type", &Config{Checks: []CheckConfig{{Name: "x", Type: "periodic", Files: pair}}}},
		{"one file", &Config{Checks: []CheckConfig{{Name: "x", Type: "json", Files: []string{"a.log"}}}}},
		{"three files", &Config{Checks: []CheckConfig{{Name: "x", Type: "json", Files: []string{"a", "b", "c"}}}}},
		{"blank file", &Config{Checks: []CheckConfig{{Name: "x", Type: "json", Files: []string{"a.log", " "}}}}},
		{"negative tolerance", &Config{Checks: []CheckConfig{{Name: "x", Type: "json", Files: pair, Tolerance: floatPtr(-1)}}}},
		{"negative column", &Config{Checks: []CheckConfig{{Name: "x", Type: "md5", Files: pair, MD5: &MD5Config{Column: -1}}}}},
		{"incomplete pair", &Config{Checks: []CheckConfig{{Name: "x", Type: "md5", Files: pair,
			MD5: &MD5Config{SkipRightPairs: []reconcile.PairFixup{{First: "test.lua"}}}}}}},
		{"unknown scenario", &Config{Checks: []CheckConfig{{Name: "x", Type: "multiplicity", Files: pair, Scenario: "poller_restart"}}}},
		{"duplicate check", &Config{Checks: []CheckConfig{
			{Name: "x", Type: "json", Files: pair},
			{Name: "x", Type: "md5", Files: pair},
		}}},
		{"unnamed exception set", &Config{
			Checks:        []CheckConfig{{Name: "x", Type: "json", Files: pair}},
			ExceptionSets: []ExceptionSetConfig{{Kinds: []KindConfig{{Kind: 1}}}},
		}},
		{"exception set shadows builtin", &Config{
			Checks:        []CheckConfig{{Name: "x", Type: "json", Files: pair}},
			ExceptionSets: []ExceptionSetConfig{{Name: reconcile.ScenarioEngineRestart}},
		}},
		{"exception set with unknown base", &Config{
			Checks:        []CheckConfig{{Name: "x", Type: "json", Files: pair}},
			ExceptionSets: []ExceptionSetConfig{{Name: "custom", Base: "nope"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Validate(tt.cfg); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := &Config{Checks: []CheckConfig{
		{Name: "m", Type: "multiplicity", Files: []string{"a", "b"}},
		{Name: "d", Type: "md5", Files: []string{"a", "b"}},
	}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.MaxParallel != DefaultMaxParallel {
		t.Errorf("MaxParallel = %d, want %d", cfg.MaxParallel, DefaultMaxParallel)
	}
	if cfg.Checks[0].Scenario != DefaultScenario {
		t.Errorf("Scenario = %q, want %q", cfg.Checks[0].Scenario, DefaultScenario)
	}
	if cfg.Checks[0].Exceptions().Name() != reconcile.ScenarioBrokerRestart {
		t.Errorf("Exceptions().Name() = %q", cfg.Checks[0].Exceptions().Name())
	}

	md5 := cfg.Checks[1].MD5
	if md5 == nil || md5.Column != reconcile.DefaultColumn {
		t.Fatalf("MD5 = %+v, want default column", md5)
	}
	if !md5.SidecarEnabled() {
		t.Error("SidecarEnabled() = false, want true by default")
	}
	if got := md5.Fixups(); len(got.SkipLeft) != 1 || got.SkipLeft[0] != "test1.lua" {
		t.Errorf("Fixups() = %+v, want legacy fixups", got)
	}
}

func TestValidate_CustomExceptionSet(t *testing.T) {
	cfg := &Config{
		Checks: []CheckConfig{{Name: "m", Type: "multiplicity", Files: []string{"a", "b"}, Scenario: "poller"}},
		ExceptionSets: []ExceptionSetConfig{{
			Name:  "poller",
			Base:  reconcile.ScenarioEngineRestart,
			Kinds: []KindConfig{{Kind: 0x20009, Label: "storage bookkeeping"}},
		}},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	set := cfg.Checks[0].Exceptions()
	if set.Name() != "poller" {
		t.Errorf("Name() = %q, want poller", set.Name())
	}
	if !set.Contains(0x20009) || !set.Contains(0x90001) {
		t.Errorf("Kinds() = %v, want engine_restart kinds plus 0x20009", set.Kinds())
	}
	if set.Label(0x20009) != "storage bookkeeping" {
		t.Errorf("Label() = %q", set.Label(0x20009))
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvMaxParallel, "7")
	t.Setenv(EnvMD5Column, "3")

	content := `
checks:
  - name: a
    type: md5
    files: [a.log, b.log]
  - name: b
    type: md5
    files: [a.log, b.log]
    md5: {column: 9}
`
	cfg, err := Load(context.Background(), writeTempFile(t, "suite.yaml", content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxParallel != 7 {
		t.Errorf("MaxParallel = %d, want 7", cfg.MaxParallel)
	}
	for _, c := range cfg.Checks {
		if c.MD5.Column != 3 {
			t.Errorf("%s: Column = %d, want 3", c.Name, c.MD5.Column)
		}
	}
}

func TestEnvironmentOverrides_InvalidIgnored(t *testing.T) {
	t.Setenv(EnvMaxParallel, "many")

	cfg, err := Parse([]byte("checks: [{name: a, type: json, files: [a, b]}]\n"), ".yaml")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.MaxParallel != DefaultMaxParallel {
		t.Errorf("MaxParallel = %d, want default", cfg.MaxParallel)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxParallel != DefaultMaxParallel {
		t.Errorf("MaxParallel = %d, want %d", cfg.MaxParallel, DefaultMaxParallel)
	}
	if cfg.Checks == nil {
		t.Error("Checks should be initialized")
	}
}

func TestValidate_Webhook(t *testing.T) {
	pair := []string{"a", "b"}
	tests := []struct {
		name    string
		webhook WebhookConfig
		wantErr bool
	}{
		{"https", WebhookConfig{URL: "https://example.com/hook"}, false},
		{"http", WebhookConfig{URL: "http://localhost:8080/hook"}, false},
		{"missing url", WebhookConfig{}, true},
		{"invalid scheme", WebhookConfig{URL: "ftp://example.com"}, true},
		{"no host", WebhookConfig{URL: "https:///path"}, true},
		{"invalid trigger", WebhookConfig{URL: "https://example.com", Trigger: "on_issues"}, true},
		{"always", WebhookConfig{URL: "https://example.com", Trigger: WebhookTriggerAlways}, false},
		{"never", WebhookConfig{URL: "https://example.com", Trigger: WebhookTriggerNever}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Checks:   []CheckConfig{{Name: "x", Type: "json", Files: pair}},
				Webhooks: []WebhookConfig{tt.webhook},
			}
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_Webhook_Defaults(t *testing.T) {
	t.Setenv("REPLAYCHECK_TEST_TOKEN", "secret")
	cfg := &Config{
		Checks:   []CheckConfig{{Name: "x", Type: "json", Files: []string{"a", "b"}}},
		Webhooks: []WebhookConfig{{URL: "https://example.com", Token: "${REPLAYCHECK_TEST_TOKEN}"}},
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	wh := cfg.Webhooks[0]
	if wh.Trigger != WebhookTriggerOnFailure {
		t.Errorf("Trigger = %q, want %q", wh.Trigger, WebhookTriggerOnFailure)
	}
	if wh.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", wh.Timeout)
	}
	if wh.Token != "secret" {
		t.Errorf("Token = %q, want expanded value", wh.Token)
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("TEST_VAR", "test_value")

	tests := []struct {
		input string
		want  string
	}{
		{"${TEST_VAR}", "test_value"},
		{"$TEST_VAR", "test_value"},
		{"literal", "literal"},
		{"", ""},
		{"${NONEXISTENT}", ""},
	}

	for _, tt := range tests {
		if got := expandEnvVar(tt.input); got != tt.want {
			t.Errorf("expandEnvVar(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}
