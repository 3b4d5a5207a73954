// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-indexer/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List filed article identifiers",
	Long: `List prints the identifiers in the registry, optionally narrowed by
publication date and category. --month requires --year and --day requires
--month.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		year, _ := cmd.Flags().GetInt("year")
		month, _ := cmd.Flags().GetInt("month")
		day, _ := cmd.Flags().GetInt("day")
		category, _ := cmd.Flags().GetString("category")

		reg := registry.New(pipelineConfig().Registry.Root)
		ids, err := reg.List(registry.Filter{Year: year, Month: month, Day: day, Category: category})
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Int("year", 0, "publication year")
	listCmd.Flags().Int("month", 0, "publication month (1-12)")
	listCmd.Flags().Int("day", 0, "publication day (1-31)")
	listCmd.Flags().String("category", "", "subject category, e.g. cs.AI")

	rootCmd.AddCommand(listCmd)
}
