package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/driftlint/driftlint/internal/config"
	"github.com/driftlint/driftlint/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize driftlint in the current project",
	Long: `Initialize driftlint by writing a default configuration file and creating
the pattern database.

This creates:
  - .driftlint.yml (default configuration)
  - .driftlint/driftlint.db (SQLite pattern and violation database)

Example:
  cd ~/myproject
  driftlint init
  driftlint scan`,
	Run: func(cmd *cobra.Command, args []string) {
		root, err := filepath.Abs(flagRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfgPath := filepath.Join(root, config.DefaultFileName)
		if _, err := os.Stat(cfgPath); err == nil {
			fmt.Fprintf(os.Stderr, "Error: %s already exists\n", cfgPath)
			os.Exit(1)
		}

		cfg := config.Default()
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: encoding default config: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: writing %s: %v\n", cfgPath, err)
			os.Exit(1)
		}

		// Open and close once so the schema exists before the first scan.
		ctx := context.Background()
		store, err := storage.New(ctx, &storage.Config{
			Path: filepath.Join(root, cfg.StoragePath),
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: initializing database: %v\n", err)
			os.Exit(1)
		}
		_ = store.Close()

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s Initialized driftlint\n\n", green("✓"))
		fmt.Printf("  Config:   %s\n", cyan(cfgPath))
		fmt.Printf("  Database: %s\n", cyan(filepath.Join(root, cfg.StoragePath)))
		fmt.Println()
		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Println("  driftlint scan    # learn conventions and report drift")
		fmt.Println("  driftlint watch   # re-check continuously while you edit")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
