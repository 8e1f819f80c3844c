package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/samurmaykrr/planscope/internal/analyzer"
	"github.com/samurmaykrr/planscope/internal/explain"
	"github.com/samurmaykrr/planscope/internal/output"
	"github.com/samurmaykrr/planscope/internal/profile"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a single query plan",
	Long: `Analyze a single query plan and provide optimization insights.

Input can be a SQL file or raw EXPLAIN output (PostgreSQL JSON or text,
SQLite EXPLAIN QUERY PLAN, MySQL EXPLAIN FORMAT=JSON or tabular).
Use "-" to read from stdin. If no file is provided, enters interactive mode.

For SQL input, a database connection is required to run
EXPLAIN (ANALYZE, VERBOSE, FORMAT JSON). Only PostgreSQL connections are
supported; for other engines run EXPLAIN yourself and provide the output.`,
	Example: `  # Analyze from file
  planscope analyze plan.json

  # SQLite output with explicit engine
  planscope analyze --engine sqlite eqp.txt

  # Run EXPLAIN against a saved profile
  planscope analyze query.sql --profile prod

  # Read from stdin
  cat query.sql | planscope analyze -

  # Interactive mode
  planscope analyze`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if format != "text" && format != "json" {
			return fmt.Errorf("invalid output format %q: must be \"text\" or \"json\"", format)
		}

		engine, connStr, cfg, err := resolveInvocation(cmd)
		if err != nil {
			return err
		}

		var file string
		if len(args) > 0 {
			file = args[0]
		}

		p, err := explain.Resolve(cmd.Context(), engine, file, connStr, "")
		if err != nil {
			return err
		}

		analysis := analyzer.WithConfig(cfg).Analyze(p)

		switch format {
		case "json":
			return output.RenderJSON(os.Stdout, analysis)
		default:
			return output.RenderAnalysisText(os.Stdout, analysis)
		}
	},
}

// resolveInvocation combines the engine/db/profile flags into the engine to
// parse with, the connection string (empty when none configured), and the
// analyzer thresholds. An explicit --engine flag beats the profile's engine.
func resolveInvocation(cmd *cobra.Command) (explain.Engine, string, analyzer.Config, error) {
	db, _ := cmd.Flags().GetString("db")
	profileName, _ := cmd.Flags().GetString("profile")
	engineName, _ := cmd.Flags().GetString("engine")

	var prof profile.Profile
	if profileName != "" {
		var err error
		prof, err = profile.Resolve(profileName)
		if err != nil {
			return "", "", analyzer.Config{}, err
		}
	}

	if !cmd.Flags().Changed("engine") && prof.Engine != "" {
		engineName = prof.Engine
	}
	engine, err := explain.ParseEngine(engineName)
	if err != nil {
		return "", "", analyzer.Config{}, err
	}

	connStr, err := profile.ResolveConnStr(db, profileName)
	if err != nil {
		return "", "", analyzer.Config{}, err
	}

	return engine, connStr, prof.AnalyzerConfig(), nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringP("engine", "e", "postgres", "Plan dialect: postgres, sqlite, mysql")
	analyzeCmd.Flags().StringP("db", "d", "", "PostgreSQL connection string")
	analyzeCmd.Flags().StringP("profile", "p", "", "Use named profile from config")
	analyzeCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
	analyzeCmd.MarkFlagsMutuallyExclusive("db", "profile")
}
