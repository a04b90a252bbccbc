package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

var (
	verbose    bool
	quiet      bool
	projectDir string
)

var rootCmd = &cobra.Command{
	Use:   "craby",
	Short: "Type-safe Rust bindings for React Native TurboModules",
	Long:  "craby generates the Rust host binding, the C++ TurboModule bridge and the Android/iOS FFI shims from TurboModule schemas.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", ".", "Project directory (searched upward for craby.toml)")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

func configureLogging() {
	switch {
	case quiet:
		commonlog.Configure(-2, nil)
	case verbose:
		commonlog.Configure(2, nil)
	default:
		commonlog.Configure(0, nil)
	}
}

func Execute() error {
	return rootCmd.Execute()
}
