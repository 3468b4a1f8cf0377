package main

import (
	"cim/internal/command"

	"github.com/spf13/cobra"
)

var (
	diffSince     string
	diffThreshold float64
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Report drift between the model and the repository",
	Long: `Diff compares the model's artifact inventory against the files on disk
(or against a VCS reference with --since) and buckets the differences
into new, deleted, and size-drifted files. It never modifies the model.

Examples:
  cim diff
  cim diff --since HEAD~5
  cim diff --threshold 25 --format table`,
	Args: cobra.NoArgs,
	Run:  runDiff,
}

func init() {
	diffCmd.Flags().StringVar(&diffSince, "since", "",
		"Compare against a VCS reference instead of the working tree")
	diffCmd.Flags().Float64Var(&diffThreshold, "threshold", 0,
		"Drift threshold percent (default: from config)")
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) {
	logger := newLogger()
	svc := mustGetService(mustGetRepoRoot(), logger)

	res, err := svc.Diff(newContext(), command.DiffOptions{
		SinceRef:         diffSince,
		ThresholdPercent: diffThreshold,
	})
	if err != nil {
		exitErr(err)
	}
	render(res)
}
