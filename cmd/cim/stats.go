package main

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics for the model",
	Long: `Stats aggregates the loaded model: artifact counts by kind, edge counts
by weight, prose coverage, top tags, the most connected artifacts, and
orphans with no edges at all.

Examples:
  cim stats
  cim stats --format table`,
	Args: cobra.NoArgs,
	Run:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) {
	logger := newLogger()
	svc := mustGetService(mustGetRepoRoot(), logger)

	res, err := svc.Stats()
	if err != nil {
		exitErr(err)
	}
	render(res)
}
