package main

import (
	"cim/internal/command"

	"github.com/spf13/cobra"
)

var (
	depsDirection string
	depsKind      string
	depsWeight    string
)

var depsCmd = &cobra.Command{
	Use:   "deps <path>",
	Short: "List the direct dependencies of an artifact",
	Long: `Deps lists the immediate neighbors of an artifact, split into
incoming and outgoing edges, optionally filtered by edge kind or weight.

Examples:
  cim deps src/pluginManager.js
  cim deps src/config.js --direction incoming
  cim deps src/main.js --weight critical --format table`,
	Args: cobra.ExactArgs(1),
	Run:  runDeps,
}

func init() {
	depsCmd.Flags().StringVar(&depsDirection, "direction", "both",
		"Edge direction: incoming, outgoing, or both")
	depsCmd.Flags().StringVar(&depsKind, "kind", "",
		"Restrict to an edge kind (default: all)")
	depsCmd.Flags().StringVar(&depsWeight, "weight", "",
		"Restrict to an edge weight: normal, weak, or critical")
	rootCmd.AddCommand(depsCmd)
}

func runDeps(cmd *cobra.Command, args []string) {
	logger := newLogger()
	svc := mustGetService(mustGetRepoRoot(), logger)

	res, err := svc.Deps(command.DepsOptions{
		Path:      args[0],
		Direction: depsDirection,
		Kind:      depsKind,
		Weight:    depsWeight,
	})
	if err != nil {
		exitErr(err)
	}
	render(res)
}
