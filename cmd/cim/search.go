package main

import (
	"cim/internal/query"

	"github.com/spf13/cobra"
)

var (
	searchTags        []string
	searchKind        string
	searchName        string
	searchProse       string
	searchExport      string
	searchHasChildren bool
	searchMatchAll    bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search artifacts by structured criteria",
	Long: `Search filters artifacts by tags, kind, name glob, prose substring,
export name, or child presence. Multiple criteria are ANDed.

Examples:
  cim search --tag plugins --tag lifecycle
  cim search --kind module --name 'src/**/*.js'
  cim search --prose "circuit breaker" --format paths
  cim search --match-all --format table`,
	Args: cobra.NoArgs,
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().StringArrayVar(&searchTags, "tag", nil, "Require a tag (repeatable, ANDed)")
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "Require an artifact kind")
	searchCmd.Flags().StringVar(&searchName, "name", "", "Glob pattern matched against paths")
	searchCmd.Flags().StringVar(&searchProse, "prose", "", "Substring matched against summary and intent")
	searchCmd.Flags().StringVar(&searchExport, "exports", "", "Require an exported symbol")
	searchCmd.Flags().BoolVar(&searchHasChildren, "has-children", false, "Filter by child presence")
	searchCmd.Flags().BoolVar(&searchMatchAll, "match-all", false, "Allow an empty search that returns every artifact")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	logger := newLogger()
	svc := mustGetService(mustGetRepoRoot(), logger)

	opts := query.SearchOptions{
		Tags:        searchTags,
		Kind:        searchKind,
		NamePattern: searchName,
		Prose:       searchProse,
		Export:      searchExport,
		MatchAll:    searchMatchAll,
	}
	if cmd.Flags().Changed("has-children") {
		opts.HasChildren = &searchHasChildren
	}

	res, err := svc.Search(opts)
	if err != nil {
		exitErr(err)
	}
	render(res)
}
