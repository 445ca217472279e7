package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

// Service converts text into fixed-length embedding vectors. The stored
// records and every query must share one embedding space, so the service
// pins the dimension at construction and treats a mismatch in provider
// output as a configuration fault, not a scoring artifact.
type Service interface {
	// Embed generates an embedding vector for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple texts in one
	// provider call. It is all-or-nothing: any failure returns no vectors.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed embedding dimensionality
	Dimension() int
}

const defaultCallTimeout = 30 * time.Second

type client struct {
	llmClient   gollem.LLMClient
	dimension   int
	callTimeout time.Duration
}

// Option is a functional option for client configuration
type Option func(*client)

// WithDimension overrides the embedding dimensionality
func WithDimension(dim int) Option {
	return func(c *client) {
		c.dimension = dim
	}
}

// WithCallTimeout bounds each provider call
func WithCallTimeout(d time.Duration) Option {
	return func(c *client) {
		c.callTimeout = d
	}
}

// New creates an embedding service backed by the shared LLM client
func New(llmClient gollem.LLMClient, opts ...Option) (Service, error) {
	if llmClient == nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "LLM client is required for embedding generation")
	}

	c := &client{
		llmClient:   llmClient,
		dimension:   model.EmbeddingDimension,
		callTimeout: defaultCallTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *client) Dimension() int {
	return c.dimension
}

func (c *client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, goerr.Wrap(types.ErrBadRequest, "no texts to embed")
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	embeddings, err := c.llmClient.GenerateEmbedding(ctx, c.dimension, texts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, goerr.Wrap(types.ErrProviderTimeout, "embedding generation exceeded deadline",
				goerr.V("texts", len(texts)), goerr.V("timeout", c.callTimeout))
		}
		return nil, goerr.Wrap(types.ErrProvider, "failed to generate embeddings",
			goerr.V("texts", len(texts)), goerr.V("cause", err.Error()))
	}

	if len(embeddings) != len(texts) {
		return nil, goerr.Wrap(types.ErrProvider, "embedding count does not match input count",
			goerr.V("want", len(texts)), goerr.V("got", len(embeddings)))
	}

	vectors := make([][]float32, len(embeddings))
	for i, embedding := range embeddings {
		if len(embedding) != c.dimension {
			return nil, goerr.Wrap(types.ErrConfiguration, "embedding dimension mismatch",
				goerr.V("want", c.dimension), goerr.V("got", len(embedding)))
		}
		vec := make([]float32, len(embedding))
		for j, v := range embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}

	return vectors, nil
}
