package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/replaycheck/pkg/config"
	"github.com/ccollicutt/replaycheck/pkg/reconcile"
)

// JSONOptions holds command-line options for the json command.
type JSONOptions struct {
	ReportOptions
	Tolerance float64
}

// NewJSONCommand creates the json command.
func NewJSONCommand() *cobra.Command {
	opts := &JSONOptions{}

	cmd := &cobra.Command{
		Use:   "json <file1> <file2>",
		Short: "Compare two JSON event streams",
		Long: `Align the JSON events of two logs and compare them field by field.

Lines that are not "<prefix> {json}" are skipped, as are the poller
registration sentinel and synthetic records (_type 4294901762 or 131081).
Float fields match when they differ by at most the tolerance.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			check := config.CheckConfig{
				Name:      "json",
				Type:      string(config.CheckTypeJSON),
				Files:     args,
				Tolerance: &opts.Tolerance,
			}
			return runPair(cmd, check, &opts.ReportOptions)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", reconcile.DefaultTolerance, "Absolute tolerance for float fields")

	return cmd
}

// MD5Options holds command-line options for the md5 command.
type MD5Options struct {
	ReportOptions
	Column         int
	NoSidecar      bool
	NoFixups       bool
	SkipLeft       []string
	SkipRightPairs []string
}

// NewMD5Command creates the md5 command.
func NewMD5Command() *cobra.Command {
	opts := &MD5Options{}

	cmd := &cobra.Command{
		Use:   "md5 <file1> <file2>",
		Short: "Compare the digest lists of two logs",
		Long: `Project one whitespace-separated column of each log (the md5 digest,
column 8 by default) and compare the lists position by position.

Each projection is also written next to its input as <file>.md5 unless
--no-sidecar is given. Both lists must be fully consumed for the check to
pass. Without --skip-left or --skip-right-pair the Lua fixture fixups apply.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			md5, err := opts.md5Config()
			if err != nil {
				return err
			}
			check := config.CheckConfig{
				Name:  "md5",
				Type:  string(config.CheckTypeMD5),
				Files: args,
				MD5:   md5,
			}
			return runPair(cmd, check, &opts.ReportOptions)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().IntVar(&opts.Column, "column", reconcile.DefaultColumn, "1-based column holding the digest")
	cmd.Flags().BoolVar(&opts.NoSidecar, "no-sidecar", false, "Do not write <file>.md5 projections")
	cmd.Flags().BoolVar(&opts.NoFixups, "no-fixups", false, "Disable all fixups")
	cmd.Flags().StringSliceVar(&opts.SkipLeft, "skip-left", nil, "Entry skipped on the first log (can be repeated)")
	cmd.Flags().StringSliceVar(&opts.SkipRightPairs, "skip-right-pair", nil, "first:second pair skipped on the second log (can be repeated)")

	return cmd
}

func (o *MD5Options) md5Config() (*config.MD5Config, error) {
	sidecar := !o.NoSidecar
	md5 := &config.MD5Config{
		Column:        o.Column,
		Sidecar:       &sidecar,
		SkipLeft:      o.SkipLeft,
		DisableFixups: o.NoFixups,
	}

	for _, p := range o.SkipRightPairs {
		first, second, ok := strings.Cut(p, ":")
		if !ok || first == "" || second == "" {
			return nil, fmt.Errorf("invalid --skip-right-pair %q (want first:second)", p)
		}
		md5.SkipRightPairs = append(md5.SkipRightPairs, reconcile.PairFixup{First: first, Second: second})
	}
	return md5, nil
}

// MultiplicityOptions holds command-line options for the multiplicity command.
type MultiplicityOptions struct {
	ReportOptions
	Scenario     string
	ExcludeKinds []string
}

// NewMultiplicityCommand creates the multiplicity command.
func NewMultiplicityCommand() *cobra.Command {
	opts := &MultiplicityOptions{}

	cmd := &cobra.Command{
		Use:   "multiplicity <file1> <file2>",
		Short: "Check that no event was duplicated across a restart",
		Long: `Count the fingerprints of "<prefix> INFO: <kind> <fingerprint> <rest>" lines
in each log and require every retained fingerprint to appear exactly once.

Kinds that the scenario expects to repeat are excluded:
  broker_restart  checks, category markers, regenerated mappings
  engine_restart  re-announced configuration, local stop event`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(opts.ExcludeKinds)
			if err != nil {
				return err
			}
			check := config.CheckConfig{
				Name:               "multiplicity",
				Type:               string(config.CheckTypeMultiplicity),
				Files:              args,
				Scenario:           opts.Scenario,
				ExtraExcludedKinds: kinds,
			}
			return runPair(cmd, check, &opts.ReportOptions)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Scenario, "scenario", reconcile.ScenarioBrokerRestart, "Restart scenario (broker_restart|engine_restart)")
	cmd.Flags().StringSliceVar(&opts.ExcludeKinds, "exclude-kind", nil, "Extra event kind to exclude, decimal or 0x hex (can be repeated)")

	return cmd
}

func parseKinds(values []string) ([]uint64, error) {
	kinds := make([]uint64, 0, len(values))
	for _, v := range values {
		k, err := strconv.ParseUint(strings.TrimSpace(v), 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --exclude-kind %q: %w", v, err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// runPair runs a single check built from command-line arguments.
func runPair(cmd *cobra.Command, check config.CheckConfig, opts *ReportOptions) error {
	cfg := config.DefaultConfig()
	cfg.Checks = []config.CheckConfig{check}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	return execute(commandContext(cmd), cmd.OutOrStdout(), cfg, "", opts)
}
