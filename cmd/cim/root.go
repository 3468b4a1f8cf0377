package main

import (
	"cim/internal/version"

	"github.com/spf13/cobra"
)

var (
	// formatFlag is the CLI --format flag value
	formatFlag string
	// repoRootFlag overrides the repository root (default: working directory)
	repoRootFlag string
	// verbosity raises the log level; quietFlag silences logs entirely
	verbosity int
	quietFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "cim",
	Short: "CIM - Code Intent Model",
	Long: `CIM (Code Intent Model) serves a curated model of a codebase's architecture -
artifacts, dependencies, flows, and intent prose - to humans and LLM agents,
as a CLI and as an MCP stdio server.

The model documents live under <repo>/.cim/ and are produced by an external
discovery pipeline; cim reads them, never the source code itself.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("CIM version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "json",
		"Output format: json, yaml, table, tree, or paths")
	rootCmd.PersistentFlags().StringVar(&repoRootFlag, "repo-root", "",
		"Repository root (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false,
		"Suppress all log output")
}
