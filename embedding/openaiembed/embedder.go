// Package openaiembed provides an OpenAI-backed embedding provider.
package openaiembed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/serenitylabs/recall/embedding"
)

const DefaultModel = string(openai.SmallEmbedding3)

// Embedder embeds text via the OpenAI embeddings API.
type Embedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dims   int
}

// New constructs an Embedder. A missing API key fails construction so the
// provider registry can fall through to the next candidate.
func New(apiKey, baseURL, model string) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	dims := 0
	switch openai.EmbeddingModel(model) {
	case openai.SmallEmbedding3:
		dims = 1536
	case openai.LargeEmbedding3:
		dims = 3072
	case openai.AdaEmbeddingV2:
		dims = 1536
	}

	return &Embedder{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.EmbeddingModel(model),
		dims:   dims,
	}, nil
}

func (e *Embedder) Name() string { return "openai" }

func (e *Embedder) Dimensions() int { return e.dims }

// Embed returns the embedding vector for text, or an empty vector for empty input.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: e.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embeddings")
	}
	return resp.Data[0].Embedding, nil
}

var _ embedding.Embedder = (*Embedder)(nil)
