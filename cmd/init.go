package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/samurmaykrr/planscope/internal/profile"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with example template",
	Long: `Create the profiles config file with an example template.

The config file stores named connection profiles so you don't need to pass
connection strings on every invocation. A profile can also pin the engine
and override analyzer thresholds. If a config file already exists, it will
not be overwritten.`,
	Example: `  # Create default config
  planscope init

  # Overwrite existing config
  planscope init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		path, err := profile.Init(force)
		if err != nil {
			return err
		}

		fmt.Printf("Created config at %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolP("force", "f", false, "Overwrite existing config file")
}
