// Package ollamaembed provides an Ollama-backed embedding provider.
package ollamaembed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ollama/ollama/api"

	"github.com/serenitylabs/recall/embedding"
)

const DefaultModel = "mxbai-embed-large"

// Embedder embeds text via a local Ollama server. The model itself is loaded
// by Ollama on first use; that warm-up is serialized so concurrent first
// callers collapse into a single load. Only a successful load sticks: a
// failed warm-up leaves the embedder retryable on the next call.
type Embedder struct {
	client *api.Client
	model  string

	mu     sync.Mutex
	warmed bool
	dims   int
}

// New constructs an Embedder and verifies the server is reachable.
// An unreachable server fails construction so the provider registry can
// fall through to the next candidate.
func New(ctx context.Context, host, model string, timeout time.Duration) (*Embedder, error) {
	if model == "" {
		model = DefaultModel
	}
	if host == "" {
		host = "http://localhost:11434"
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := api.NewClient(base, &http.Client{Timeout: timeout})

	if err := client.Heartbeat(ctx); err != nil {
		return nil, fmt.Errorf("ollama heartbeat: %w", err)
	}
	return &Embedder{client: client, model: model}, nil
}

func (e *Embedder) Name() string { return "ollama" }

// Dimensions returns the vector size, known after the first successful embed.
func (e *Embedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dims
}

// Embed returns the embedding vector for text, or an empty vector for empty input.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, nil
	}
	if err := e.warmUp(ctx); err != nil {
		return nil, fmt.Errorf("ollama model load: %w", err)
	}
	return e.embed(ctx, text)
}

// warmUp forces the model into server memory. Concurrent first callers block
// on the mutex instead of triggering duplicate loads. A failed attempt
// returns its error without marking the embedder warm, so a transient
// failure (server hiccup, canceled context) does not disable embedding for
// the process lifetime.
func (e *Embedder) warmUp(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.warmed {
		return nil
	}
	vec, err := e.embed(ctx, "warmup")
	if err != nil {
		return err
	}
	e.dims = len(vec)
	e.warmed = true
	return nil
}

func (e *Embedder) embed(ctx context.Context, text string) ([]float32, error) {
	var result []float32

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 500 * time.Millisecond
	eb.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		resp, err := e.client.Embed(ctx, &api.EmbedRequest{
			Model: e.model,
			Input: text,
		})
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("failed to embed text: %w", err)
		}
		if len(resp.Embeddings) == 0 {
			return backoff.Permanent(fmt.Errorf("ollama returned no embeddings"))
		}
		result = resp.Embeddings[0]
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(eb, 3), ctx)); err != nil {
		return nil, err
	}
	return result, nil
}

var _ embedding.Embedder = (*Embedder)(nil)
