package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/momo-AUX1/craby/gen"
	"github.com/momo-AUX1/craby/writer"
)

var (
	codegenOverwrite bool
	codegenForce     bool
	codegenDryRun    bool
)

var codegenCmd = &cobra.Command{
	Use:   "codegen",
	Short: "Generate bindings for every module schema in the project",
	Args:  cobra.NoArgs,
	RunE:  runCodegen,
}

func init() {
	codegenCmd.Flags().BoolVar(&codegenOverwrite, "overwrite", true, "Replace existing generated files (scaffolds are never replaced)")
	codegenCmd.Flags().BoolVar(&codegenForce, "force", false, "Regenerate even if the schemas are unchanged")
	codegenCmd.Flags().BoolVar(&codegenDryRun, "dry-run", false, "Show what would be written without touching any file")
	rootCmd.AddCommand(codegenCmd)
}

func runCodegen(cmd *cobra.Command, args []string) error {
	start := time.Now()
	out := cmd.OutOrStdout()

	cfg, schemas, err := loadProject()
	if err != nil {
		return err
	}
	printField(out, "Project", cfg.Project.Name)
	for _, s := range schemas {
		printField(out, "Module", fmt.Sprintf("%s (%d methods, %d signals)", s.ModuleName, len(s.Methods), len(s.Signals)))
	}

	plan, err := gen.Run(newContext(cfg, schemas), os.DirFS(cfg.Dir))
	if err != nil {
		return fmt.Errorf("codegen failed: %w", err)
	}

	if !codegenForce && !codegenDryRun {
		last, err := writer.ReadFingerprint(cfg.Dir)
		if err != nil {
			return fmt.Errorf("reading last generation fingerprint: %w", err)
		}
		if last == plan.Fingerprint {
			printSuccess(out, "Schemas and project settings unchanged, nothing to do (use --force to regenerate)")
			return nil
		}
	}

	res, err := writer.Apply(cfg.Dir, plan, writer.Options{Overwrite: codegenOverwrite, DryRun: codegenDryRun})
	if err != nil {
		return err
	}

	if codegenDryRun {
		printTree(out, "Would write", res.Written)
		printTree(out, "Would remove", res.Removed)
		printTree(out, "Would preserve", res.Preserved)
		return nil
	}

	printField(out, "Written", fmt.Sprintf("%d file(s)", len(res.Written)))
	if len(res.Unchanged) > 0 {
		printField(out, "Unchanged", fmt.Sprintf("%d file(s)", len(res.Unchanged)))
	}
	printTree(out, "Removed stale files", res.Removed)
	printTree(out, fmt.Sprintf("Preserving existing files (new versions in %s)", writer.ScratchDir), res.Preserved)
	printSuccess(out, fmt.Sprintf("\nCodegen completed (%dms)", time.Since(start).Milliseconds()))
	return nil
}
