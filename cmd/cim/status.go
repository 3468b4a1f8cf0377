package main

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show model metadata and health",
	Long: `Status reports where the model was loaded from, its schema version,
when and by what it was generated, and headline counts.

Examples:
  cim status
  cim status --format table`,
	Args: cobra.NoArgs,
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	logger := newLogger()
	svc := mustGetService(mustGetRepoRoot(), logger)

	res, err := svc.Status()
	if err != nil {
		exitErr(err)
	}
	render(res)
}
