// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-indexer/internal/vectorstore"
)

var scrollCmd = &cobra.Command{
	Use:   "scroll",
	Short: "Print stored points without a query",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		store, err := vectorstore.New(pipelineConfig().VectorStore)
		if err != nil {
			return err
		}
		defer store.Close()

		articles, err := store.Scroll(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, a := range articles {
			fmt.Printf("%-16s  %-10s  %s\n", a.ArxivID, a.Published.UTC().Format(time.DateOnly), a.Title)
		}
		fmt.Printf("\n%d points\n", len(articles))
		return nil
	},
}

func init() {
	scrollCmd.Flags().Int("limit", 10, "number of points to print")

	rootCmd.AddCommand(scrollCmd)
}
