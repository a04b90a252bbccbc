package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/momo-AUX1/craby/config"
	"github.com/momo-AUX1/craby/gen"
	"github.com/momo-AUX1/craby/writer"
)

var cleanDryRun bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove generated module files and the .craby directory",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "List files without removing them")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.FindAndLoad(projectDir)
	if err != nil {
		return err
	}

	gens, err := gen.Pipeline()
	if err != nil {
		return err
	}
	// With no schemas every per-module output is stale.
	ctx := gen.NewContext(cfg.Project.Name, cfg.Dir, cfg.Android.PackageName, nil)
	fsys := os.DirFS(cfg.Dir)

	var stale []string
	for _, g := range gens {
		paths, err := g.Stale(ctx, fsys)
		if err != nil {
			return fmt.Errorf("%s: %w", g.Name(), err)
		}
		stale = append(stale, paths...)
	}

	if cleanDryRun {
		printTree(cmd.OutOrStdout(), "Would remove", append(stale, writer.ScratchDir))
		return nil
	}

	for _, p := range stale {
		if err := os.Remove(filepath.Join(cfg.Dir, filepath.FromSlash(p))); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	if err := os.RemoveAll(cfg.ScratchDir()); err != nil {
		return fmt.Errorf("removing %s: %w", writer.ScratchDir, err)
	}

	printTree(cmd.OutOrStdout(), "Removed", stale)
	printSuccess(cmd.OutOrStdout(), "Clean completed.")
	return nil
}
