package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

// Load reads and validates a suite file. Files ending in .json or .jsonc
// may carry comments and trailing commas.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data, filepath.Ext(path))
}

// Parse decodes and validates suite content. ext selects the JSON
// preprocessing and may be empty for YAML.
func Parse(data []byte, ext string) (*Config, error) {
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks a configuration for errors, fills check defaults and
// resolves each multiplicity check's exception set.
func Validate(cfg *Config) error {
	if len(cfg.Checks) == 0 {
		return errors.New("checks: at least one check is required")
	}

	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}

	sets, err := buildExceptionSets(cfg.ExceptionSets)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(cfg.Checks))
	for i := range cfg.Checks {
		check := &cfg.Checks[i]
		if err := validateCheck(check, sets); err != nil {
			return fmt.Errorf("checks[%d] (%s): %w", i, check.Name, err)
		}
		if seen[check.Name] {
			return fmt.Errorf("checks[%d]: duplicate name %q", i, check.Name)
		}
		seen[check.Name] = true
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := ValidateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	return nil
}

func buildExceptionSets(defs []ExceptionSetConfig) (map[string]reconcile.ExceptionSet, error) {
	sets := map[string]reconcile.ExceptionSet{
		reconcile.ScenarioBrokerRestart: reconcile.BrokerRestart(),
		reconcile.ScenarioEngineRestart: reconcile.EngineRestart(),
	}

	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("exception_sets[%d]: name is required", i)
		}
		if _, exists := sets[def.Name]; exists {
			return nil, fmt.Errorf("exception_sets[%d]: name %q is already defined", i, def.Name)
		}

		kinds := make(map[uint64]string, len(def.Kinds))
		for _, k := range def.Kinds {
			kinds[k.Kind] = k.Label
		}

		set := reconcile.NewExceptionSet(def.Name, kinds)
		if def.Base != "" {
			base, err := reconcile.BuiltinExceptionSet(def.Base)
			if err != nil {
				return nil, fmt.Errorf("exception_sets[%d] (%s): base: %w", i, def.Name, err)
			}
			set = reconcile.NewExceptionSet(def.Name, labelsOf(base)).With(kinds)
		}
		sets[def.Name] = set
	}

	return sets, nil
}

func labelsOf(s reconcile.ExceptionSet) map[uint64]string {
	out := make(map[uint64]string, s.Len())
	for _, k := range s.Kinds() {
		out[k] = s.Label(k)
	}
	return out
}

func validateCheck(check *CheckConfig, sets map[string]reconcile.ExceptionSet) error {
	if check.Name == "" {
		return errors.New("name is required")
	}

	if len(check.Files) != 2 {
		return fmt.Errorf("files must list exactly two logs, got %d", len(check.Files))
	}
	for i, f := range check.Files {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("files[%d] is empty", i)
		}
	}

	switch CheckType(check.Type) {
	case CheckTypeJSON:
		return validateJSONCheck(check)
	case CheckTypeMD5:
		return validateMD5Check(check)
	case CheckTypeMultiplicity:
		return validateMultiplicityCheck(check, sets)
	default:
		return fmt.Errorf("invalid type %q (must be json, md5, or multiplicity)", check.Type)
	}
}

func validateJSONCheck(check *CheckConfig) error {
	if check.Tolerance == nil {
		tol := reconcile.DefaultTolerance
		check.Tolerance = &tol
	}
	if *check.Tolerance < 0 {
		return errors.New("tolerance must be >= 0")
	}
	return nil
}

func validateMD5Check(check *CheckConfig) error {
	if check.MD5 == nil {
		check.MD5 = &MD5Config{}
	}
	if check.MD5.Column < 0 {
		return errors.New("md5.column must be >= 1")
	}
	if check.MD5.Column == 0 {
		check.MD5.Column = reconcile.DefaultColumn
	}
	for i, p := range check.MD5.SkipRightPairs {
		if p.First == "" || p.Second == "" {
			return fmt.Errorf("md5.skip_right_pairs[%d]: first and second are required", i)
		}
	}
	return nil
}

func validateMultiplicityCheck(check *CheckConfig, sets map[string]reconcile.ExceptionSet) error {
	if check.Scenario == "" {
		check.Scenario = DefaultScenario
	}

	set, ok := sets[check.Scenario]
	if !ok {
		return fmt.Errorf("unknown scenario %q (must be %s, %s, or a declared exception set)",
			check.Scenario, reconcile.ScenarioBrokerRestart, reconcile.ScenarioEngineRestart)
	}

	if len(check.ExtraExcludedKinds) > 0 {
		extra := make(map[uint64]string, len(check.ExtraExcludedKinds))
		for _, k := range check.ExtraExcludedKinds {
			extra[k] = "extra"
		}
		set = set.With(extra)
	}
	check.exceptions = set

	return nil
}

// ValidateWebhook checks a webhook definition and fills its defaults.
func ValidateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	switch wh.Trigger {
	case "":
		wh.Trigger = WebhookTriggerOnFailure
	case WebhookTriggerOnFailure, WebhookTriggerAlways, WebhookTriggerNever:
	default:
		return fmt.Errorf("invalid trigger %q (must be on_failure, always, or never)", wh.Trigger)
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands a whole-value ${VAR} or $VAR reference.
func expandEnvVar(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}
	return s
}
