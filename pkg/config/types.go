// Package config provides suite loading and validation for replaycheck.
package config

import (
	"time"

	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

// Config is the root of a suite file.
type Config struct {
	Checks        []CheckConfig        `yaml:"checks"`
	ExceptionSets []ExceptionSetConfig `yaml:"exception_sets,omitempty"`

	// MaxParallel bounds how many checks run at once.
	MaxParallel int `yaml:"max_parallel,omitempty"`

	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// CheckType represents the kind of reconciliation a check performs.
type CheckType string

const (
	CheckTypeJSON         CheckType = "json"
	CheckTypeMD5          CheckType = "md5"
	CheckTypeMultiplicity CheckType = "multiplicity"
)

// CheckConfig defines a single check over a pair of logs.
type CheckConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"` // json, md5, multiplicity
	Description string `yaml:"description,omitempty"`

	// Files holds exactly two paths or single-match globs.
	Files []string `yaml:"files"`

	// JSON check fields. A nil Tolerance means the default; 0 asks for exact
	// float comparison.
	Tolerance *float64 `yaml:"tolerance,omitempty"`

	// Multiplicity check fields
	Scenario           string   `yaml:"scenario,omitempty"`
	ExtraExcludedKinds []uint64 `yaml:"extra_excluded_kinds,omitempty"`

	// MD5 check fields
	MD5 *MD5Config `yaml:"md5,omitempty"`

	exceptions reconcile.ExceptionSet
}

// CheckTypeEnum returns the check type as a CheckType enum.
func (c *CheckConfig) CheckTypeEnum() CheckType {
	return CheckType(c.Type)
}

// FloatTolerance returns the tolerance of a json check, or the default when
// none was given.
func (c *CheckConfig) FloatTolerance() float64 {
	if c.Tolerance == nil {
		return reconcile.DefaultTolerance
	}
	return *c.Tolerance
}

// Exceptions returns the exception set resolved during validation.
func (c *CheckConfig) Exceptions() reconcile.ExceptionSet {
	return c.exceptions
}

// MD5Config tunes the fingerprint list comparison.
type MD5Config struct {
	// Column is the 1-based whitespace-separated field holding the digest.
	Column int `yaml:"column,omitempty"`

	// Sidecar writes the projected list next to each input as <file>.md5.
	Sidecar *bool `yaml:"sidecar,omitempty"`

	SkipLeft       []string              `yaml:"skip_left,omitempty"`
	SkipRightPairs []reconcile.PairFixup `yaml:"skip_right_pairs,omitempty"`

	// DisableFixups compares the lists verbatim.
	DisableFixups bool `yaml:"disable_fixups,omitempty"`
}

// Fixups returns the configured fixups, or the legacy Lua fixture fixups
// when none are set.
func (m *MD5Config) Fixups() reconcile.SequenceFixups {
	if m != nil && m.DisableFixups {
		return reconcile.SequenceFixups{}
	}
	if m == nil || (len(m.SkipLeft) == 0 && len(m.SkipRightPairs) == 0) {
		return reconcile.LegacyLuaFixups()
	}
	return reconcile.SequenceFixups{SkipLeft: m.SkipLeft, SkipRightPairs: m.SkipRightPairs}
}

// SidecarEnabled reports whether projections are written to disk.
func (m *MD5Config) SidecarEnabled() bool {
	if m == nil || m.Sidecar == nil {
		return true
	}
	return *m.Sidecar
}

// ExceptionSetConfig declares a custom exception set usable as a scenario.
type ExceptionSetConfig struct {
	Name  string       `yaml:"name"`
	Base  string       `yaml:"base,omitempty"` // optional built-in scenario to extend
	Kinds []KindConfig `yaml:"kinds"`
}

// KindConfig is one excluded event kind.
type KindConfig struct {
	Kind  uint64 `yaml:"kind"`
	Label string `yaml:"label,omitempty"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnFailure fires only when a check fails (default).
	WebhookTriggerOnFailure WebhookTrigger = "on_failure"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending run results.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token. ${VAR} and $VAR are expanded.
	Token string `yaml:"token,omitempty"`

	// Trigger defaults to "on_failure".
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout defaults to 10s.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
