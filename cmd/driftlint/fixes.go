package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/driftlint/driftlint/internal/scanner"
)

var fixesCmd = &cobra.Command{
	Use:   "fixes <violation-id>",
	Short: "Show ranked quick fixes for a violation",
	Long: `Re-scan the project and print the ranked quick fixes for one violation,
including a unified-diff preview of each fix. The preferred fix, if any, is
marked.

Violation ids are printed by 'driftlint scan' and are stable across rescans
of unchanged code.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := args[0]

		ctx := context.Background()
		a, err := newApp(ctx, flagRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		files, err := scanner.DiscoverFiles(a.root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		results, err := a.service.Scan(ctx, files)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		for _, v := range results.Violations {
			if v.ID != id {
				continue
			}
			if flagJSON {
				json.NewEncoder(os.Stdout).Encode(v.QuickFixes) //nolint:errcheck
				return
			}
			if len(v.QuickFixes) == 0 {
				fmt.Printf("No quick fixes available for %s.\n", id)
				return
			}

			cyan := color.New(color.FgCyan).SprintFunc()
			green := color.New(color.FgGreen).SprintFunc()
			gray := color.New(color.FgHiBlack).SprintFunc()

			fmt.Printf("\n%s %s %s\n", cyan(v.File), gray(v.Range.String()), v.Actual)
			for i, f := range v.QuickFixes {
				marker := " "
				if f.IsPreferred {
					marker = green("★")
				}
				fmt.Printf("\n%s %d. %s %s\n", marker, i+1, f.Title,
					gray(fmt.Sprintf("(%s, confidence %.2f)", f.Type, f.Confidence)))
				if f.Preview != "" {
					fmt.Println(f.Preview)
				}
			}
			return
		}

		fmt.Fprintf(os.Stderr, "Error: no active violation with id %s\n", id)
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(fixesCmd)
}
