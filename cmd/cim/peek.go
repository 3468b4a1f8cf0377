package main

import (
	"github.com/spf13/cobra"
)

var peekCmd = &cobra.Command{
	Use:   "peek <path>",
	Short: "Show a one-screen summary of an artifact",
	Long: `Peek returns the cheap view of an artifact: kind, summary, tags,
exports, size, and its dependency count.

Examples:
  cim peek src/pluginManager.js
  cim peek src/config.js --format table`,
	Args: cobra.ExactArgs(1),
	Run:  runPeek,
}

func init() {
	rootCmd.AddCommand(peekCmd)
}

func runPeek(cmd *cobra.Command, args []string) {
	logger := newLogger()
	svc := mustGetService(mustGetRepoRoot(), logger)

	res, err := svc.Peek(args[0])
	if err != nil {
		exitErr(err)
	}
	render(res)
}
