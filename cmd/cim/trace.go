package main

import (
	"cim/internal/command"

	"github.com/spf13/cobra"
)

var (
	traceDirection string
	traceKind      string
	traceDepth     int
)

var traceCmd = &cobra.Command{
	Use:   "trace <path>",
	Short: "Walk the dependency graph from an artifact",
	Long: `Trace runs a breadth-first walk from an artifact, bounded by depth,
and reports the visited artifacts with their depth plus the edges
between them.

Examples:
  cim trace src/main.js
  cim trace src/pluginManager.js --direction backward --depth 3
  cim trace src/main.js --kind calls --format tree`,
	Args: cobra.ExactArgs(1),
	Run:  runTrace,
}

func init() {
	traceCmd.Flags().StringVar(&traceDirection, "direction", "forward",
		"Walk direction: forward, backward, or both")
	traceCmd.Flags().StringVar(&traceKind, "kind", "",
		"Restrict to an edge kind (default: all)")
	traceCmd.Flags().IntVar(&traceDepth, "depth", 2, "Maximum traversal depth")
	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) {
	logger := newLogger()
	svc := mustGetService(mustGetRepoRoot(), logger)

	res, err := svc.Trace(command.TraceOptions{
		Path:      args[0],
		Direction: traceDirection,
		Kind:      traceKind,
		Depth:     traceDepth,
	})
	if err != nil {
		exitErr(err)
	}
	render(res)
}
