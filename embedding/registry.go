package embedding

import (
	"context"

	"github.com/rs/zerolog"
)

// Candidate is one entry in an ordered provider preference list.
// New constructs the provider and should fail fast when it is not
// configured or not reachable.
type Candidate struct {
	Name string
	New  func(ctx context.Context) (Embedder, error)
}

// Resolve walks the candidate list in order and returns the first provider
// that constructs successfully. When every candidate fails, the hashed
// fallback is returned, so the result is never nil. Resolution happens once
// at startup; once a provider is chosen it must stay fixed for the lifetime
// of the deployment, since swapping providers changes the embedding space
// and silently degrades similarity against stored vectors.
func Resolve(ctx context.Context, candidates []Candidate, logger zerolog.Logger) Embedder {
	logger = logger.With().Str("component", "embedding_registry").Logger()

	for _, c := range candidates {
		e, err := c.New(ctx)
		if err != nil {
			logger.Warn().
				Str("provider", c.Name).
				Err(err).
				Msg("Embedding provider unavailable, trying next")
			continue
		}
		logger.Info().
			Str("provider", e.Name()).
			Int("dimensions", e.Dimensions()).
			Msg("Embedding provider selected")
		return e
	}

	logger.Warn().Msg("No embedding provider available, using hashed fallback")
	return NewHashEmbedder()
}
