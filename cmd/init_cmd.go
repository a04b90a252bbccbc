package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/momo-AUX1/craby/config"
)

var (
	initName      string
	initPackage   string
	initSourceDir string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter craby.toml in the project directory",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initName, "name", "n", "", "Project name")
	initCmd.Flags().StringVar(&initPackage, "package", "", "Android package name, e.g. com.example.app")
	initCmd.Flags().StringVar(&initSourceDir, "source-dir", "src", "Directory holding module schemas, relative to the project")
	_ = initCmd.MarkFlagRequired("name")
	_ = initCmd.MarkFlagRequired("package")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := &config.Config{
		Project: config.Project{Name: initName, SourceDir: initSourceDir},
		Android: config.Android{PackageName: initPackage},
	}
	if err := config.Save(projectDir, cfg); err != nil {
		return err
	}

	if !filepath.IsAbs(initSourceDir) {
		if err := os.MkdirAll(filepath.Join(projectDir, initSourceDir), 0o755); err != nil {
			return fmt.Errorf("creating source directory: %w", err)
		}
	}

	printField(cmd.OutOrStdout(), "Created", filepath.Join(projectDir, config.FileName))
	printField(cmd.OutOrStdout(), "Schemas", filepath.Join(projectDir, initSourceDir))
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nNext: add module schemas, then run `craby codegen`\n")
	}
	return nil
}
