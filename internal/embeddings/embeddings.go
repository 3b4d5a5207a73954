// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embeddings turns article abstracts and search queries into
// dense vectors. Two providers are supported: a local Ollama server and
// the hosted Gemini embedding API. Either can be wrapped in an LRU cache.
package embeddings

import (
	"context"
	"fmt"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

// Embedder produces one vector per input text. Vectors from one Embedder
// all have the same width.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// New builds the embedder selected by cfg.Backend, wrapped in a cache when
// cfg.CacheSize is positive.
func New(ctx context.Context, cfg types.EmbeddingConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Backend {
	case "", types.EmbeddingOllama:
		e = NewOllamaClient(cfg)
	case types.EmbeddingGemini:
		e, err = NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown embedding backend %q: use ollama or gemini", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		return NewCached(e, cfg.CacheSize)
	}
	return e, nil
}
