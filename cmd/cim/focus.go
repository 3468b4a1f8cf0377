package main

import (
	"cim/internal/command"

	"github.com/spf13/cobra"
)

var focusInclude []string

var focusCmd = &cobra.Command{
	Use:   "focus <path>",
	Short: "Show the full dossier of an artifact",
	Long: `Focus returns everything the model knows about an artifact: the peek
fields plus intent prose, children, incoming and outgoing dependencies,
and the flows that reference it.

Examples:
  cim focus src/pluginManager.js
  cim focus src/pluginManager.js --include deps --include flows
  cim focus src/pluginManager.js --format tree`,
	Args: cobra.ExactArgs(1),
	Run:  runFocus,
}

func init() {
	focusCmd.Flags().StringArrayVar(&focusInclude, "include", nil,
		"Sections to include: deps, flows, children (default: all)")
	rootCmd.AddCommand(focusCmd)
}

func runFocus(cmd *cobra.Command, args []string) {
	logger := newLogger()
	svc := mustGetService(mustGetRepoRoot(), logger)

	res, err := svc.Focus(command.FocusOptions{
		Path:    args[0],
		Include: focusInclude,
	})
	if err != nil {
		exitErr(err)
	}
	render(res)
}
