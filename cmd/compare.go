package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samurmaykrr/planscope/internal/analyzer"
	"github.com/samurmaykrr/planscope/internal/comparator"
	"github.com/samurmaykrr/planscope/internal/explain"
	"github.com/samurmaykrr/planscope/internal/output"
)

var compareCmd = &cobra.Command{
	Use:   "compare [file1] [file2]",
	Short: "Compare two query plans",
	Long: `Compare two query plans side-by-side, typically the same query before and
after an optimization attempt.

Inputs can be SQL files or raw EXPLAIN output, and don't need to be the same
type. Either file (but not both) can be "-" to read from stdin. If no files
are provided, enters interactive mode.

For SQL input, a database connection is required to run
EXPLAIN (ANALYZE, VERBOSE, FORMAT JSON).`,
	Example: `  # Compare two plan files
  planscope compare old.json new.json

  # Run both queries against a saved profile
  planscope compare old.sql new.sql --profile prod

  # Mix input types
  planscope compare prod-plan.json new-query.sql --profile dev

  # Read one plan from stdin
  cat old.json | planscope compare - new.json

  # Interactive mode
  planscope compare`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "text" && format != "json" {
			return fmt.Errorf("invalid output format %q: must be \"text\" or \"json\"", format)
		}

		var file1, file2 string
		if len(args) > 0 {
			file1 = args[0]
		}
		if len(args) > 1 {
			file2 = args[1]
		}
		if file1 == "-" && file2 == "-" {
			return fmt.Errorf("only one input can read from stdin")
		}

		engine, connStr, cfg, err := resolveInvocation(cmd)
		if err != nil {
			return err
		}

		oldPlan, err := explain.Resolve(cmd.Context(), engine, file1, connStr, "the FIRST plan's ")
		if err != nil {
			return fmt.Errorf("first input: %w", err)
		}
		newPlan, err := explain.Resolve(cmd.Context(), engine, file2, connStr, "the SECOND plan's ")
		if err != nil {
			return fmt.Errorf("second input: %w", err)
		}

		qa := analyzer.WithConfig(cfg)
		result := comparator.New().Compare(qa.Analyze(oldPlan), qa.Analyze(newPlan))

		switch format {
		case "json":
			return output.RenderJSON(os.Stdout, result)
		default:
			return output.RenderComparisonText(os.Stdout, result)
		}
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringP("engine", "e", "postgres", "Plan dialect: postgres, sqlite, mysql")
	compareCmd.Flags().StringP("db", "d", "", "PostgreSQL connection string")
	compareCmd.Flags().StringP("profile", "p", "", "Use named profile from config")
	compareCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
	compareCmd.MarkFlagsMutuallyExclusive("db", "profile")
}
