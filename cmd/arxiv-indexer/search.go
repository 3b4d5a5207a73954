// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find indexed papers similar to a query",
	Long: `Search embeds the query with the configured embedding backend and returns
the most similar papers from the vector store, highest score first.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := pipelineConfig()
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, emb, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	defer emb.Close()

	results, err := store.SearchText(ctx, emb, strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	return formatSearchOutput(os.Stdout, results, jsonOutput)
}

func formatSearchOutput(w io.Writer, results []types.SearchResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-7s  %-16s  %s\n", "Rank", "Score", "arXiv ID", "Title")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for i, r := range results {
		title := r.Article.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(w, "%-4d  %-7.4f  %-16s  %s\n", i+1, r.Score, r.Article.ArxivID, title)
	}
	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

func init() {
	searchCmd.Flags().Int("limit", 3, "maximum number of results")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
