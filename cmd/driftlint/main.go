package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is the tool version, overridable at build time with -ldflags.
var Version = "0.3.0"

var (
	flagRoot string
	flagJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "driftlint",
	Short: "Convention drift linter",
	Long: `driftlint learns your codebase's implicit conventions and flags the code
that drifts from them.

It observes how patterns like error handling, import quoting, and indentation
are expressed across your files, decides which variant is dominant, and
reports the outliers as violations with ranked quick fixes. Deviations that
are intentional can be approved once and stay suppressed.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "project root directory")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "machine-readable JSON output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
