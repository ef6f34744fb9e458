package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/user"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/driftlint/driftlint/internal/types"
)

var (
	approvePattern  string
	approveFile     string
	approveGlob     string
	approveReason   string
	approveApprover string
)

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "Manage approved deviations",
	Long: `List, approve, and revoke approved variants.

An approved variant marks a deviation from the dominant convention as
intentional. Matching violations are suppressed from scan reports but still
counted in pattern statistics. Approvals persist until explicitly revoked.`,
}

var variantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List approved variants",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := newApp(ctx, flagRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		list, err := a.variants.List(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if flagJSON {
			json.NewEncoder(os.Stdout).Encode(list) //nolint:errcheck
			return
		}
		if len(list) == 0 {
			fmt.Println("No approved variants.")
			return
		}

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, v := range list {
			scope := v.Scope.File
			if scope == "" {
				scope = v.Scope.Glob
			}
			fmt.Printf("%s  %s  %s\n", gray(v.ID), cyan(v.PatternID), scope)
			fmt.Printf("    %s %s approved by %s on %s\n",
				gray("reason:"), v.Reason, v.Approver, v.ApprovedAt.Format("2006-01-02"))
		}
	},
}

var variantsApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve a deviation so it stops being reported",
	Long: `Approve a deviation from the dominant convention.

The scope is a single file (--file) or a glob (--glob); a reason is required.

Examples:
  driftlint variants approve --pattern error-handling-style --glob 'legacy/**' \
    --reason 'legacy code predates the convention'
  driftlint variants approve --pattern import-quote-style --file src/gen/api.ts \
    --reason 'generated file'`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := newApp(ctx, flagRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		approver := approveApprover
		if approver == "" {
			if u, err := user.Current(); err == nil {
				approver = u.Username
			}
		}

		v, err := a.variants.Approve(ctx, approvePattern, types.VariantScope{
			File: approveFile,
			Glob: approveGlob,
		}, approveReason, approver)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Approved variant %s for pattern %s\n", green("✓"), v.ID, v.PatternID)
	},
}

var variantsRevokeCmd = &cobra.Command{
	Use:   "revoke <variant-id>",
	Short: "Revoke an approved variant",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		a, err := newApp(ctx, flagRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		if err := a.variants.Revoke(ctx, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Revoked variant %s; matching violations will surface on the next scan\n",
			green("✓"), args[0])
	},
}

func init() {
	variantsApproveCmd.Flags().StringVar(&approvePattern, "pattern", "", "pattern id the deviation belongs to (required)")
	variantsApproveCmd.Flags().StringVar(&approveFile, "file", "", "exact relative file path to approve")
	variantsApproveCmd.Flags().StringVar(&approveGlob, "glob", "", "glob of relative paths to approve, e.g. 'legacy/**'")
	variantsApproveCmd.Flags().StringVar(&approveReason, "reason", "", "why this deviation is intentional (required)")
	variantsApproveCmd.Flags().StringVar(&approveApprover, "approver", "", "who approved it (defaults to the current user)")

	variantsCmd.AddCommand(variantsListCmd)
	variantsCmd.AddCommand(variantsApproveCmd)
	variantsCmd.AddCommand(variantsRevokeCmd)
	rootCmd.AddCommand(variantsCmd)
}
