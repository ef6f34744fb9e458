package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/driftlint/driftlint/internal/scanner"
	"github.com/driftlint/driftlint/internal/types"
)

var scanFailOn string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the project and report convention drift",
	Long: `Run one full scan pass: learn the project's dominant conventions from
every source file, then report the places that deviate.

Exit status is 1 when any violation at or above the --fail-on severity is
found, or when the scan itself had errors.

Examples:
  driftlint scan
  driftlint scan --fail-on warning
  driftlint scan --json`,
	Run: func(cmd *cobra.Command, args []string) {
		failOn, err := types.ParseSeverity(scanFailOn)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

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

		if flagJSON {
			if err := json.NewEncoder(os.Stdout).Encode(results); err != nil {
				fmt.Fprintf(os.Stderr, "Error: encoding results: %v\n", err)
				os.Exit(1)
			}
		} else {
			printReport(a, results)
		}

		if shouldFail(results, failOn) {
			os.Exit(1)
		}
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanFailOn, "fail-on", "error", "minimum severity that fails the scan (info|warning|error|critical)")
	rootCmd.AddCommand(scanCmd)
}

func shouldFail(results *scanner.ScanResults, failOn types.Severity) bool {
	if !results.Success {
		return true
	}
	for _, v := range results.Violations {
		if !v.Severity.Less(failOn) {
			return true
		}
	}
	return false
}

func printReport(a *app, results *scanner.ScanResults) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s Scanned %d files in %s (%d patterns learned)\n",
		gray("→"), results.Stats.FilesScanned, results.Stats.Duration.Round(time.Millisecond),
		results.Stats.PatternsLearned)

	for _, v := range results.Violations {
		sev := yellow(string(v.Severity))
		if v.Severity == types.SeverityError || v.Severity == types.SeverityCritical {
			sev = red(string(v.Severity))
		}
		fmt.Printf("\n%s %s %s\n", sev, cyan(v.File), gray(v.Range.String()))
		fmt.Printf("  pattern:  %s\n", v.PatternID)
		fmt.Printf("  expected: %s\n", v.Expected)
		fmt.Printf("  actual:   %s\n", v.Actual)
		if v.Occurrences > 1 {
			fmt.Printf("  seen %d times since %s\n", v.Occurrences, v.FirstSeen.Format("2006-01-02"))
		}
		if fix, ok := v.PreferredFix(); ok {
			fmt.Printf("  fix: %s %s\n", fix.Title, gray(fmt.Sprintf("(driftlint fixes %s)", v.ID)))
		}
	}

	printApprovalSuggestions(a, results)

	if len(results.Errors) > 0 {
		fmt.Printf("\n%s %d files could not be scanned:\n", yellow("!"), len(results.Errors))
		for _, e := range results.Errors {
			fmt.Printf("  %s: %s\n", e.File, e.Message)
		}
	}

	fmt.Println()
	if len(results.Violations) == 0 && results.Success {
		fmt.Printf("%s No convention drift found\n", green("✓"))
	} else {
		fmt.Printf("%s %d violations (%d suppressed by approved variants, %d resolved)\n",
			red("✗"), len(results.Violations),
			results.Stats.ViolationsSuppressed, results.Stats.ViolationsResolved)
	}
}

// printApprovalSuggestions points out non-dominant variants common enough
// that they may be intentional. Approval is never automatic.
func printApprovalSuggestions(a *app, results *scanner.ScanResults) {
	gray := color.New(color.FgHiBlack).SprintFunc()

	for _, p := range results.Patterns {
		if p.TotalObservations == 0 {
			continue
		}
		for _, v := range p.Variants {
			if v.Signature == p.DominantVariant {
				continue
			}
			share := float64(v.Occurrences) / float64(p.TotalObservations)
			if share > a.cfg.SuggestApproveThreshold {
				fmt.Printf("\n%s %.0f%% of %s uses %q. If that split is intentional, approve it:\n",
					gray("→"), share*100, p.ID, v.Description)
				fmt.Printf("  driftlint variants approve --pattern %s --glob '**' --reason '...'\n", p.ID)
			}
		}
	}
}
