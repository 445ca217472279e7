package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/teamctx-lab/teamctx/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// SearchInput is a semantic query over one project. Limit and Threshold
// fall back to the retrieval policy defaults when unset.
type SearchInput struct {
	ProjectID types.ProjectID
	Query     string
	Limit     int
	Threshold *float64
}

// Search embeds the query and returns the project's most similar records,
// best first. Matched records get their access count bumped.
func (uc *UseCases) Search(ctx context.Context, principalID types.PrincipalID, input *SearchInput) ([]*model.ScoredRecord, error) {
	if input.Query == "" {
		return nil, goerr.Wrap(types.ErrBadRequest, "query cannot be empty",
			goerr.V(types.ProjectIDKey, input.ProjectID))
	}

	limit := input.Limit
	if limit <= 0 {
		limit = uc.policy.SearchLimit
	}
	threshold := uc.policy.SearchThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}

	if _, err := uc.authorizeProject(ctx, principalID, input.ProjectID, AccessLevelRead); err != nil {
		return nil, err
	}

	return uc.retrieve(ctx, input.ProjectID, input.Query, limit, threshold)
}

// retrieve is the shared retrieval path behind both search and chat
// grounding. The project must already be authorized. Candidates never cross
// the project boundary: the only records considered are those listed under
// the given project ID.
func (uc *UseCases) retrieve(ctx context.Context, projectID types.ProjectID, query string, limit int, threshold float64) ([]*model.ScoredRecord, error) {
	if uc.embedder == nil {
		return nil, goerr.Wrap(types.ErrConfiguration, "embedding service is not configured")
	}

	queryVector, err := uc.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := uc.repo.Context().ListByProject(ctx, projectID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list project records",
			goerr.V(types.ProjectIDKey, projectID))
	}

	results := uc.ranker.Rank(queryVector, candidates, limit, threshold)

	uc.bumpAccessCounts(ctx, results)

	return results, nil
}

// bumpAccessCounts increments the access count of every returned record,
// one independent atomic update per record. Failures are logged and do not
// affect the result set.
func (uc *UseCases) bumpAccessCounts(ctx context.Context, results []*model.ScoredRecord) {
	if len(results) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, result := range results {
		id := result.Record.ID
		g.Go(func() error {
			if err := uc.repo.Context().IncrementAccessCount(gctx, id); err != nil {
				return goerr.Wrap(err, "failed to increment access count",
					goerr.V(types.RecordIDKey, id))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logging.From(ctx).Warn("access count update failed", "error", err.Error())
	}
}

// GetRecord fetches one context record, guarded by read access to its
// project.
func (uc *UseCases) GetRecord(ctx context.Context, principalID types.PrincipalID, id types.RecordID) (*model.ContextRecord, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(types.ErrBadRequest, "invalid record ID", goerr.V(types.RecordIDKey, id))
	}

	record, err := uc.repo.Context().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := uc.authorizeProject(ctx, principalID, record.ProjectID, AccessLevelRead); err != nil {
		return nil, err
	}

	return record, nil
}
