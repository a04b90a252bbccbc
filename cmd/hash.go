package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/momo-AUX1/craby/model"
)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Print the content hash of the project's module schemas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, schemas, err := loadProject()
		if err != nil {
			return err
		}
		hash, err := model.Hash(schemas)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
