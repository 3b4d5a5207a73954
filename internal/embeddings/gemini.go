// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embeddings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

const (
	DefaultGeminiModel = "text-embedding-004"

	// geminiBatchSize is the API limit on requests per batch call.
	geminiBatchSize = 100
)

// GeminiClient embeds text with a hosted Gemini embedding model.
type GeminiClient struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

// NewGeminiClient connects with cfg.APIKey. The key is required.
func NewGeminiClient(ctx context.Context, cfg types.EmbeddingConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini embedding backend requires an API key (embedding.api_key or secrets/gemini-api-key)")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	name := cfg.Model
	if name == "" {
		name = DefaultGeminiModel
	}
	return &GeminiClient{client: client, model: client.EmbeddingModel(name)}, nil
}

// Embed returns the embedding vector for text.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := g.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, errors.New("gemini returned an empty embedding")
	}
	return res.Embedding.Values, nil
}

// EmbedBatch embeds texts with batch calls and returns vectors in input
// order.
func (g *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchSize {
		end := min(start+geminiBatchSize, len(texts))
		batch := g.model.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		res, err := g.model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("gemini batch embed: %w", err)
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(res.Embeddings), end-start)
		}
		for _, e := range res.Embeddings {
			if e == nil || len(e.Values) == 0 {
				return nil, errors.New("gemini returned an empty embedding")
			}
			out = append(out, e.Values)
		}
	}
	return out, nil
}

// Close releases the underlying client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}
