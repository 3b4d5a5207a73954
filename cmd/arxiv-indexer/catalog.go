// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-indexer/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the local full-text catalog (sync, search, export)",
	Long: `Catalog keeps a SQLite full-text index of the articles in the registry.
It works offline and complements the semantic search of the vector store.`,
}

// --- sync subcommand ---

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Index new and changed registry articles",
	Long: `Sync reads article.json files from the registry into the catalog.
Unchanged articles are skipped; articles no longer in the registry are removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCatalog(pipelineConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		summary, err := store.Sync(cmd.Context(), os.Stdout)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d article(s) failed indexing", summary.Failed)
		}
		return nil
	},
}

// --- search subcommand ---

var catalogSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over title, abstract and body",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := catalogOptsFromFlags(cmd, args)
		if opts.Query == "" && opts.Category == "" && opts.Year == 0 {
			return fmt.Errorf("query or filter required: provide a search query, --category, or --year")
		}

		store, err := openCatalog(pipelineConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.Search(cmd.Context(), opts)
		if err != nil {
			return err
		}
		jsonOutput, _ := cmd.Flags().GetBool("json")
		return formatCatalogOutput(results, jsonOutput)
	},
}

func formatCatalogOutput(results []catalog.QueryResult, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-16s  %-10s  %-50s  %s\n", "arXiv ID", "Published", "Title", "Categories")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, r := range results {
		title := r.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		published := r.Published
		if len(published) > 10 {
			published = published[:10]
		}
		fmt.Fprintf(os.Stdout, "%-16s  %-10s  %-50s  %s\n",
			r.ArxivID, published, title, strings.Join(r.Categories, ","))
		if r.Snippet != "" {
			fmt.Fprintf(os.Stdout, "%-16s  %s\n", "", r.Snippet)
		}
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML or JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		store, err := openCatalog(pipelineConfig())
		if err != nil {
			return err
		}
		defer store.Close()

		opts := catalogOptsFromFlags(cmd, nil)
		var path string
		switch format {
		case "yaml", "":
			path, err = store.ExportYAML(cmd.Context(), opts)
		case "json":
			path, err = store.ExportJSON(cmd.Context(), opts)
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", path)
		return nil
	},
}

// --- shared helpers ---

func catalogOptsFromFlags(cmd *cobra.Command, args []string) catalog.QueryOptions {
	category, _ := cmd.Flags().GetString("category")
	year, _ := cmd.Flags().GetInt("year")
	limit, _ := cmd.Flags().GetInt("limit")
	return catalog.QueryOptions{
		Query:      strings.Join(args, " "),
		Category:   category,
		Year:       year,
		MaxResults: limit,
	}
}

func init() {
	catalogCmd.PersistentFlags().String("catalog-dir", "", "directory holding catalog.db and exports")
	viper.BindPFlag("catalog.dir", catalogCmd.PersistentFlags().Lookup("catalog-dir"))

	for _, c := range []*cobra.Command{catalogSearchCmd, catalogExportCmd} {
		c.Flags().String("category", "", "filter by category")
		c.Flags().Int("year", 0, "filter by publication year")
	}
	catalogSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	catalogSearchCmd.Flags().Bool("json", false, "output results as JSON")
	catalogExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	catalogCmd.AddCommand(catalogSyncCmd)
	catalogCmd.AddCommand(catalogSearchCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	rootCmd.AddCommand(catalogCmd)
}
