package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/replaycheck/pkg/config"
	"github.com/ccollicutt/replaycheck/pkg/parser"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <suite-file>",
		Short: "Validate a suite file",
		Long: `Validate a replaycheck suite file without running any check.

Checks:
  - YAML or JSON syntax
  - Required fields
  - Check type-specific requirements
  - Scenario and exception set names
  - Input file existence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	suitePath := args[0]
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Validating %s...\n", suitePath)

	cfg, err := config.Load(commandContext(cmd), suitePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(w, "\nConfiguration valid!\n")
	fmt.Fprintf(w, "  Checks:         %d\n", len(cfg.Checks))
	fmt.Fprintf(w, "  Exception sets: %d\n", len(cfg.ExceptionSets))
	fmt.Fprintf(w, "  Max parallel:   %d\n", cfg.MaxParallel)

	fmt.Fprintf(w, "\nChecks:\n")
	for i, check := range cfg.Checks {
		fmt.Fprintf(w, "  %d. [%s] %s\n", i+1, check.Type, check.Name)
		if check.Description != "" {
			fmt.Fprintf(w, "     %s\n", check.Description)
		}
		if check.CheckTypeEnum() == config.CheckTypeMultiplicity {
			set := check.Exceptions()
			fmt.Fprintf(w, "     scenario %s, %d excluded kinds\n", check.Scenario, set.Len())
		}

		// Missing inputs are only a warning: logs are often produced later.
		paths, err := parser.ResolvePaths(check.Files)
		if err != nil {
			fmt.Fprintf(w, "     Warning: %v\n", err)
			continue
		}
		for _, p := range paths {
			if !fileExists(p) {
				fmt.Fprintf(w, "     Warning: input not found: %s\n", p)
			}
		}
	}

	return nil
}
