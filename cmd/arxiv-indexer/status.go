// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-indexer/internal/embeddings"
	"github.com/pdiddy/arxiv-indexer/internal/registry"
	"github.com/pdiddy/arxiv-indexer/internal/vectorstore"
	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

const statusTimeout = 10 * time.Second

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the state of the registry, catalog, vector store and embedder",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	ids, err := registry.New(cfg.Registry.Root).List(registry.Filter{})
	if err != nil {
		fmt.Printf("registry:     %s (error: %v)\n", cfg.Registry.Root, err)
	} else {
		fmt.Printf("registry:     %s (%d articles)\n", cfg.Registry.Root, len(ids))
	}

	if cat, err := openCatalog(cfg); err != nil {
		fmt.Printf("catalog:      unavailable (%v)\n", err)
	} else {
		n, err := cat.Count(ctx)
		cat.Close()
		if err != nil {
			fmt.Printf("catalog:      error (%v)\n", err)
		} else {
			fmt.Printf("catalog:      %d articles\n", n)
		}
	}

	fmt.Printf("vector store: %s\n", vectorStoreStatus(ctx, cfg.VectorStore))
	fmt.Printf("embedder:     %s\n", embedderStatus(ctx, cfg.Embedding))
	return nil
}

func vectorStoreStatus(ctx context.Context, cfg types.VectorStoreConfig) string {
	store, err := vectorstore.New(cfg)
	if err != nil {
		return fmt.Sprintf("unavailable (%v)", err)
	}
	defer store.Close()

	watermark, ok, err := store.LatestImportWatermark(ctx)
	switch {
	case err != nil:
		return fmt.Sprintf("%s error (%v)", store.Collection(), err)
	case !ok:
		return fmt.Sprintf("%s empty", store.Collection())
	default:
		return fmt.Sprintf("%s latest import %s", store.Collection(), watermark.Format(time.DateOnly))
	}
}

func embedderStatus(ctx context.Context, cfg types.EmbeddingConfig) string {
	if cfg.Backend != "" && cfg.Backend != types.EmbeddingOllama {
		return string(cfg.Backend)
	}
	c := embeddings.NewOllamaClient(cfg)
	if !c.Healthy(ctx) {
		return fmt.Sprintf("ollama at %s not reachable", cfg.Host)
	}
	return fmt.Sprintf("ollama at %s ok", cfg.Host)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
