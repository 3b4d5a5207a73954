// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-indexer/internal/registry"
	"github.com/pdiddy/arxiv-indexer/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve semantic search over HTTP",
	Long: `Serve exposes the vector store as a small JSON API:

  GET /health
  GET /search?q=<query>&limit=<n>
  GET /articles/<arxiv-id>

Article lookups read the registry first and fall back to the vector store.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := pipelineConfig()
		store, emb, err := openIndex(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		defer emb.Close()

		addr := viper.GetString("server.addr")
		slog.Info("serving", "addr", addr, "collection", store.Collection())
		return server.NewServer(store, emb, registry.New(cfg.Registry.Root)).Run(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
