package main

import (
	"cim/internal/command"

	"github.com/spf13/cobra"
)

var (
	queryMode       string
	queryMaxResults int
)

var queryCmd = &cobra.Command{
	Use:   "query <task>",
	Short: "Rank artifacts by relevance to a natural-language task",
	Long: `Query scores every artifact against a task description using the model's
tags, summaries, intent prose, exports, and paths, expands scores along
the dependency graph, and returns the top matches plus any relevant flows.

With --mode ai the local top candidates are re-ranked by the configured
AI backend; on any ranker failure the local ranking is returned with a
degraded flag.

Examples:
  cim query "how are plugins activated"
  cim query "billing invoices" --max-results 5
  cim query "where is retry handled" --mode ai`,
	Args: cobra.ExactArgs(1),
	Run:  runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryMode, "mode", "local", "Ranking mode: local or ai")
	queryCmd.Flags().IntVar(&queryMaxResults, "max-results", 0,
		"Maximum results (default: from config)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) {
	logger := newLogger()
	svc := mustGetService(mustGetRepoRoot(), logger)

	res, err := svc.Query(newContext(), command.QueryOptions{
		Task:       args[0],
		Mode:       queryMode,
		MaxResults: queryMaxResults,
	})
	if err != nil {
		exitErr(err)
	}
	if res.Degraded {
		logger.Warn("AI ranking failed, returning local ranking")
	}
	render(res)
}
