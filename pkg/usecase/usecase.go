package usecase

import (
	"github.com/m-mizutani/gollem"
	"github.com/teamctx-lab/teamctx/pkg/domain/interfaces"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/service/embedding"
	"github.com/teamctx-lab/teamctx/pkg/service/metering"
	"github.com/teamctx-lab/teamctx/pkg/service/rank"
)

type UseCases struct {
	repo      interfaces.Repository
	embedder  embedding.Service
	ranker    rank.Ranker
	llmClient gollem.LLMClient
	sink      interfaces.UsageSink
	policy    *model.RetrievalPolicy
	jwtSecret []byte
}

type Option func(*UseCases)

// WithEmbedding sets the embedding service. Ingest, search and chat fail
// with a configuration error when no embedder is set.
func WithEmbedding(svc embedding.Service) Option {
	return func(uc *UseCases) {
		uc.embedder = svc
	}
}

// WithRanker replaces the default exact cosine ranker
func WithRanker(r rank.Ranker) Option {
	return func(uc *UseCases) {
		uc.ranker = r
	}
}

// WithLLMClient sets the generation backend used by chat
func WithLLMClient(client gollem.LLMClient) Option {
	return func(uc *UseCases) {
		uc.llmClient = client
	}
}

// WithUsageSink sets the usage metering sink
func WithUsageSink(sink interfaces.UsageSink) Option {
	return func(uc *UseCases) {
		uc.sink = sink
	}
}

// WithRetrievalPolicy overrides the built-in retrieval defaults
func WithRetrievalPolicy(policy *model.RetrievalPolicy) Option {
	return func(uc *UseCases) {
		uc.policy = policy
	}
}

// WithJWTSecret sets the HMAC signing key for issued tokens
func WithJWTSecret(secret []byte) Option {
	return func(uc *UseCases) {
		uc.jwtSecret = secret
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo:   repo,
		ranker: rank.NewCosine(),
		sink:   metering.Discard{},
		policy: model.DefaultRetrievalPolicy(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
