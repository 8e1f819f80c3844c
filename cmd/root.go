package cmd

import (
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var Version = "dev"

func init() {
	if Version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
	}
	rootCmd.Version = Version
}

var rootCmd = &cobra.Command{
	Use:          "planscope",
	SilenceUsage: true,
	Short:        "Analyze and compare SQL query plans",
	Long: `planscope is a CLI tool for analyzing and comparing EXPLAIN plans from
PostgreSQL, SQLite, and MySQL.

It normalizes plans from all three engines into one model and provides
actionable optimization suggestions without requiring a browser.`,
	Example: `  # Analyze a single query plan
  planscope analyze plan.json

  # Analyze SQLite EXPLAIN QUERY PLAN output
  planscope analyze --engine sqlite eqp.txt

  # Compare two plans
  planscope compare old.json new.json

  # Setup connection profiles
  planscope init`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
