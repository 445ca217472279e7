package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/teamctx-lab/teamctx/pkg/utils/logging"
)

// IngestInput is a batch of chunks to embed and store in one project
type IngestInput struct {
	ProjectID types.ProjectID
	Chunks    []model.Chunk
	Source    string
	Tags      []string
}

// IngestOutput reports what was stored
type IngestOutput struct {
	VectorsStored       int
	VectorIDs           []types.RecordID
	EmbeddingDimensions int
}

// Ingest embeds the chunks and stores them as context records in the
// project. Embedding is all-or-nothing: if any chunk fails to embed,
// nothing is stored. Persistence is one bulk write.
func (uc *UseCases) Ingest(ctx context.Context, principalID types.PrincipalID, input *IngestInput) (*IngestOutput, error) {
	if uc.embedder == nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "embedding service is not configured")
	}

	if len(input.Chunks) == 0 {
		return nil, goerr.Wrap(types.ErrBadRequest, "no chunks to ingest",
			goerr.V(types.ProjectIDKey, input.ProjectID))
	}

	texts := make([]string, len(input.Chunks))
	for i, chunk := range input.Chunks {
		if chunk.Content == "" {
			return nil, goerr.Wrap(types.ErrBadRequest, "chunk content cannot be empty",
				goerr.V("chunk", i))
		}
		texts[i] = chunk.Content
	}

	if _, err := uc.authorizeProject(ctx, principalID, input.ProjectID, AccessLevelRead); err != nil {
		return nil, err
	}

	vectors, err := uc.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	records := make([]*model.ContextRecord, len(input.Chunks))
	for i, chunk := range input.Chunks {
		extra := make(map[string]string, len(chunk.Metadata))
		for k, v := range chunk.Metadata {
			extra[k] = v
		}
		records[i] = &model.ContextRecord{
			ProjectID: input.ProjectID,
			Content:   chunk.Content,
			Embedding: vectors[i],
			CreatedBy: principalID,
			Metadata: model.Metadata{
				Source: input.Source,
				Tags:   input.Tags,
				Extra:  extra,
			},
		}
	}

	inserted, err := uc.repo.Context().Insert(ctx, records)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to store context records",
			goerr.V(types.ProjectIDKey, input.ProjectID),
			goerr.V("records", len(records)))
	}

	ids := make([]types.RecordID, len(inserted))
	for i, record := range inserted {
		ids[i] = record.ID
	}

	logging.From(ctx).Info("ingested context records",
		"project_id", input.ProjectID,
		"records", len(inserted))

	return &IngestOutput{
		VectorsStored:       len(inserted),
		VectorIDs:           ids,
		EmbeddingDimensions: uc.embedder.Dimension(),
	}, nil
}
