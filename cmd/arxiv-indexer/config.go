// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/pdiddy/arxiv-indexer/internal/catalog"
	"github.com/pdiddy/arxiv-indexer/internal/convert"
	"github.com/pdiddy/arxiv-indexer/internal/embeddings"
	"github.com/pdiddy/arxiv-indexer/internal/extract"
	"github.com/pdiddy/arxiv-indexer/internal/fetch"
	"github.com/pdiddy/arxiv-indexer/internal/harvest"
	"github.com/pdiddy/arxiv-indexer/internal/registry"
	"github.com/pdiddy/arxiv-indexer/internal/secrets"
	"github.com/pdiddy/arxiv-indexer/internal/vectorstore"
	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

func setDefaults() {
	viper.SetDefault("secrets_dir", ".secrets/")
	viper.SetDefault("registry.root", "registry")

	viper.SetDefault("arxiv.api_url", harvest.DefaultAPIURL)
	viper.SetDefault("arxiv.source_url", extract.DefaultSourceURL)
	viper.SetDefault("arxiv.pdf_url", extract.DefaultPDFURL)
	viper.SetDefault("arxiv.abs_url", extract.DefaultAbsURL)
	viper.SetDefault("arxiv.request_interval", fetch.DefaultInterval)
	viper.SetDefault("arxiv.timeout", "60s")
	viper.SetDefault("arxiv.user_agent", "arxiv-indexer/"+version)
	viper.SetDefault("arxiv.page_size", harvest.DefaultPageSize)
	viper.SetDefault("arxiv.categories", []string{"cs.AI", "cs.LG", "cs.CL"})

	viper.SetDefault("pdf.backend", string(types.PDFBackendNative))

	viper.SetDefault("embedding.backend", string(types.EmbeddingOllama))
	viper.SetDefault("embedding.host", embeddings.DefaultOllamaHost)
	viper.SetDefault("embedding.model", "")
	viper.SetDefault("embedding.cache_size", 1024)
	viper.SetDefault("embedding.max_retries", 0)

	viper.SetDefault("vector_store.host", vectorstore.DefaultHost)
	viper.SetDefault("vector_store.port", vectorstore.DefaultPort)
	viper.SetDefault("vector_store.use_tls", false)
	viper.SetDefault("vector_store.collection", vectorstore.DefaultCollection)
	viper.SetDefault("vector_store.vector_name", vectorstore.DefaultVectorName)
	viper.SetDefault("vector_store.dimensions", vectorstore.DefaultDimensions)
	viper.SetDefault("vector_store.distance", "dot")

	viper.SetDefault("catalog.dir", "catalog")
	viper.SetDefault("catalog.max_results", 20)

	viper.SetDefault("server.addr", ":8080")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

// pipelineConfig assembles the stage configurations from viper. API keys
// fall back to files in the secrets directory.
func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Arxiv: types.ArxivConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("arxiv.timeout"),
				UserAgent: viper.GetString("arxiv.user_agent"),
			},
			APIURL:          viper.GetString("arxiv.api_url"),
			SourceURL:       viper.GetString("arxiv.source_url"),
			PDFURL:          viper.GetString("arxiv.pdf_url"),
			AbsURL:          viper.GetString("arxiv.abs_url"),
			RequestInterval: viper.GetDuration("arxiv.request_interval"),
			PageSize:        viper.GetInt("arxiv.page_size"),
			Categories:      viper.GetStringSlice("arxiv.categories"),
		},
		Import: types.ImportConfig{
			PDFBackend: types.PDFBackend(viper.GetString("pdf.backend")),
		},
		Embedding: types.EmbeddingConfig{
			Backend:    types.EmbeddingBackend(viper.GetString("embedding.backend")),
			Host:       viper.GetString("embedding.host"),
			Model:      viper.GetString("embedding.model"),
			APIKey:     loadedSecrets.Lookup(secrets.GeminiAPIKey, viper.GetString("embedding.api_key")),
			CacheSize:  viper.GetInt("embedding.cache_size"),
			MaxRetries: viper.GetInt("embedding.max_retries"),
		},
		VectorStore: types.VectorStoreConfig{
			Host:       viper.GetString("vector_store.host"),
			Port:       viper.GetInt("vector_store.port"),
			APIKey:     loadedSecrets.Lookup(secrets.QdrantAPIKey, viper.GetString("vector_store.api_key")),
			UseTLS:     viper.GetBool("vector_store.use_tls"),
			Collection: viper.GetString("vector_store.collection"),
			VectorName: viper.GetString("vector_store.vector_name"),
			Dimensions: viper.GetUint64("vector_store.dimensions"),
			Distance:   viper.GetString("vector_store.distance"),
		},
		Registry: types.RegistryConfig{
			Root: viper.GetString("registry.root"),
		},
		Catalog: types.CatalogConfig{
			Dir:        viper.GetString("catalog.dir"),
			MaxResults: viper.GetInt("catalog.max_results"),
		},
	}
}

// newCoordinator builds the extraction chain around one shared fetcher so
// every arXiv request goes through the same rate limiter.
func newCoordinator(cfg types.PipelineConfig, f *fetch.Fetcher) (*extract.Coordinator, error) {
	conv, err := convert.New(cfg.Import.PDFBackend)
	if err != nil {
		return nil, err
	}
	return extract.NewDefaultCoordinator(f, cfg.Arxiv, conv), nil
}

// openIndex connects to the vector store and the embedding backend. The
// caller closes both.
func openIndex(ctx context.Context, cfg types.PipelineConfig) (*vectorstore.Store, embeddings.Embedder, error) {
	store, err := vectorstore.New(cfg.VectorStore)
	if err != nil {
		return nil, nil, err
	}
	emb, err := embeddings.New(ctx, cfg.Embedding)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}
	return store, emb, nil
}

func openCatalog(cfg types.PipelineConfig) (*catalog.Store, error) {
	return catalog.NewStore(cfg.Catalog, registry.New(cfg.Registry.Root))
}
