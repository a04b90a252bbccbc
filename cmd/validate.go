package cmd

import (
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the project's module schemas without generating",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, schemas, err := loadProject()
	if err != nil {
		return err
	}

	if verbose {
		printField(cmd.OutOrStdout(), "Source", cfg.SourcePath())
		for _, s := range schemas {
			printField(cmd.OutOrStdout(), "Module", s.ModuleName)
		}
	}
	printSuccess(cmd.OutOrStdout(), "Validation passed.")
	return nil
}
