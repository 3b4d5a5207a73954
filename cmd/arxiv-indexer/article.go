// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-indexer/internal/registry"
	"github.com/pdiddy/arxiv-indexer/internal/vectorstore"
	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

var articleCmd = &cobra.Command{
	Use:   "article <arxiv-id>",
	Short: "Show where an article is filed and whether it is indexed",
	Long: `Article resolves an identifier through the registry's by_id links, prints
the files held for it, and checks the vector store for a matching point.
With --json the stored article is printed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runArticle,
}

func runArticle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := pipelineConfig()
	id := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")
	offline, _ := cmd.Flags().GetBool("offline")

	reg := registry.New(cfg.Registry.Root)
	paths, filed := reg.Paths(id)

	var (
		indexed *types.Article
		found   bool
	)
	if !offline {
		store, err := vectorstore.New(cfg.VectorStore)
		if err != nil {
			return err
		}
		defer store.Close()
		indexed, found, err = store.LookupByID(ctx, id)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		a := indexed
		if stored, ok, err := reg.LoadByID(id); err != nil {
			return err
		} else if ok {
			a = stored
		}
		if a == nil {
			return fmt.Errorf("article %s not found", id)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	}

	if !filed && !found {
		return fmt.Errorf("article %s not found in registry or vector store", id)
	}

	fmt.Printf("%s\n", id)
	if filed {
		keys := make([]string, 0, len(paths))
		for k := range paths {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-10s %s\n", k+":", paths[k])
		}
	} else {
		fmt.Println("  not filed in registry")
	}

	switch {
	case offline:
	case found:
		fmt.Printf("  indexed:   yes (%s, %s)\n", indexed.Title, strings.Join(indexed.Categories, ", "))
	default:
		fmt.Println("  indexed:   no")
	}
	return nil
}

func init() {
	articleCmd.Flags().Bool("json", false, "print the stored article as JSON")
	articleCmd.Flags().Bool("offline", false, "skip the vector store lookup")

	rootCmd.AddCommand(articleCmd)
}
