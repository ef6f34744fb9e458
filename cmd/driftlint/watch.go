package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/driftlint/driftlint/internal/scanner"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the project and re-check changed files",
	Long: `Run an initial full scan, then watch the project for file changes and
recompute convention drift incrementally. Only changed files are re-scanned;
aggregation is recomputed over the full observation set so dominant variants
stay accurate as the codebase shifts.

Stop with Ctrl-C.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, flagRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		gray := color.New(color.FgHiBlack).SprintFunc()
		w := scanner.NewWatcher(a.service)
		w.OnResults = func(results *scanner.ScanResults) {
			if flagJSON {
				json.NewEncoder(os.Stdout).Encode(results) //nolint:errcheck
				return
			}
			printReport(a, results)
			fmt.Printf("%s watching for changes...\n", gray("→"))
		}

		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
