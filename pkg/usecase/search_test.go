package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/teamctx-lab/teamctx/pkg/repository/memory"
	"github.com/teamctx-lab/teamctx/pkg/usecase"
)

var (
	vecX = []float32{1, 0, 0}
	vecY = []float32{0, 1, 0}
	vecZ = []float32{0, 0, 1}
)

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns matches best first", func(t *testing.T) {
		repo := memory.New()
		embedder := &mockEmbedder{vectors: map[string][]float32{
			"deploy process": vecX,
		}}
		uc := usecase.New(repo, usecase.WithEmbedding(embedder))

		owner := seedPrincipal(t, repo, "alice@example.com")
		project := seedProject(t, repo, owner.ID)
		exact := seedRecord(t, repo, project.ID, "deploys run from main", vecX)
		near := seedRecord(t, repo, project.ID, "deploys need approval", []float32{0.9, 0.1, 0})
		seedRecord(t, repo, project.ID, "lunch menu", vecY)

		results, err := uc.Search(ctx, owner.ID, &usecase.SearchInput{
			ProjectID: project.ID,
			Query:     "deploy process",
			Threshold: float64Ptr(0.5),
		})
		gt.NoError(t, err).Required()

		gt.Array(t, results).Length(2)
		gt.Value(t, results[0].Record.ID).Equal(exact.ID)
		gt.Value(t, results[1].Record.ID).Equal(near.ID)
		gt.Number(t, results[0].Score).GreaterOrEqual(results[1].Score)
	})

	t.Run("never crosses the project boundary", func(t *testing.T) {
		repo := memory.New()
		embedder := &mockEmbedder{vectors: map[string][]float32{
			"shared topic": vecX,
		}}
		uc := usecase.New(repo, usecase.WithEmbedding(embedder))

		owner := seedPrincipal(t, repo, "alice@example.com")
		mine := seedProject(t, repo, owner.ID)
		other := seedProject(t, repo, owner.ID)
		wanted := seedRecord(t, repo, mine.ID, "my note on the topic", vecX)
		seedRecord(t, repo, other.ID, "their note on the topic", vecX)

		results, err := uc.Search(ctx, owner.ID, &usecase.SearchInput{
			ProjectID: mine.ID,
			Query:     "shared topic",
		})
		gt.NoError(t, err).Required()

		gt.Array(t, results).Length(1)
		gt.Value(t, results[0].Record.ID).Equal(wanted.ID)
		gt.Value(t, results[0].Record.ProjectID).Equal(mine.ID)
	})

	t.Run("empty project yields empty results without error", func(t *testing.T) {
		repo := memory.New()
		embedder := &mockEmbedder{fallback: vecX}
		uc := usecase.New(repo, usecase.WithEmbedding(embedder))

		owner := seedPrincipal(t, repo, "alice@example.com")
		project := seedProject(t, repo, owner.ID)

		results, err := uc.Search(ctx, owner.ID, &usecase.SearchInput{
			ProjectID: project.ID,
			Query:     "anything",
		})
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(0)
	})

	t.Run("bumps access counts of matched records only", func(t *testing.T) {
		repo := memory.New()
		embedder := &mockEmbedder{vectors: map[string][]float32{
			"query": vecX,
		}}
		uc := usecase.New(repo, usecase.WithEmbedding(embedder))

		owner := seedPrincipal(t, repo, "alice@example.com")
		project := seedProject(t, repo, owner.ID)
		matched := seedRecord(t, repo, project.ID, "matched content", vecX)
		unmatched := seedRecord(t, repo, project.ID, "unmatched content", vecZ)

		_, err := uc.Search(ctx, owner.ID, &usecase.SearchInput{
			ProjectID: project.ID,
			Query:     "query",
			Threshold: float64Ptr(0.5),
		})
		gt.NoError(t, err).Required()

		got, err := repo.Context().Get(ctx, matched.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.AccessCount).Equal(int64(1))

		got, err = repo.Context().Get(ctx, unmatched.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.AccessCount).Equal(int64(0))
	})

	t.Run("limit truncates the result set", func(t *testing.T) {
		repo := memory.New()
		embedder := &mockEmbedder{fallback: vecX}
		uc := usecase.New(repo, usecase.WithEmbedding(embedder))

		owner := seedPrincipal(t, repo, "alice@example.com")
		project := seedProject(t, repo, owner.ID)
		for i := 0; i < 5; i++ {
			seedRecord(t, repo, project.ID, "note", vecX)
		}

		results, err := uc.Search(ctx, owner.ID, &usecase.SearchInput{
			ProjectID: project.ID,
			Query:     "note",
			Limit:     2,
		})
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(2)
	})

	t.Run("contributors can search, outsiders cannot", func(t *testing.T) {
		repo := memory.New()
		embedder := &mockEmbedder{fallback: vecX}
		uc := usecase.New(repo, usecase.WithEmbedding(embedder))

		owner := seedPrincipal(t, repo, "alice@example.com")
		contributor := seedPrincipal(t, repo, "bob@example.com")
		outsider := seedPrincipal(t, repo, "mallory@example.com")
		project := seedProject(t, repo, owner.ID, contributor.ID)
		seedRecord(t, repo, project.ID, "team note", vecX)

		results, err := uc.Search(ctx, contributor.ID, &usecase.SearchInput{
			ProjectID: project.ID,
			Query:     "note",
		})
		gt.NoError(t, err).Required()
		gt.Array(t, results).Length(1)

		_, err = uc.Search(ctx, outsider.ID, &usecase.SearchInput{
			ProjectID: project.ID,
			Query:     "note",
		})
		gt.Error(t, err).Is(types.ErrForbidden)
	})

	t.Run("unknown project is not found", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo, usecase.WithEmbedding(&mockEmbedder{fallback: vecX}))
		owner := seedPrincipal(t, repo, "alice@example.com")

		_, err := uc.Search(ctx, owner.ID, &usecase.SearchInput{
			ProjectID: types.NewProjectID(),
			Query:     "note",
		})
		gt.Error(t, err).Is(types.ErrNotFound)
	})

	t.Run("empty query is a bad request", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo, usecase.WithEmbedding(&mockEmbedder{fallback: vecX}))
		owner := seedPrincipal(t, repo, "alice@example.com")
		project := seedProject(t, repo, owner.ID)

		_, err := uc.Search(ctx, owner.ID, &usecase.SearchInput{
			ProjectID: project.ID,
			Query:     "",
		})
		gt.Error(t, err).Is(types.ErrBadRequest)
	})

	t.Run("missing embedder is a configuration error", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)
		owner := seedPrincipal(t, repo, "alice@example.com")
		project := seedProject(t, repo, owner.ID)

		_, err := uc.Search(ctx, owner.ID, &usecase.SearchInput{
			ProjectID: project.ID,
			Query:     "note",
		})
		gt.Error(t, err).Is(types.ErrConfiguration)
	})
}

func TestGetRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("returns a record the principal can read", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)
		owner := seedPrincipal(t, repo, "alice@example.com")
		project := seedProject(t, repo, owner.ID)
		record := seedRecord(t, repo, project.ID, "stored note", vecX)

		got, err := uc.GetRecord(ctx, owner.ID, record.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.ID).Equal(record.ID)
		gt.Value(t, got.Content).Equal("stored note")
	})

	t.Run("outsiders are forbidden", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)
		owner := seedPrincipal(t, repo, "alice@example.com")
		outsider := seedPrincipal(t, repo, "mallory@example.com")
		project := seedProject(t, repo, owner.ID)
		record := seedRecord(t, repo, project.ID, "stored note", vecX)

		_, err := uc.GetRecord(ctx, outsider.ID, record.ID)
		gt.Error(t, err).Is(types.ErrForbidden)
	})

	t.Run("unknown record is not found", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)
		owner := seedPrincipal(t, repo, "alice@example.com")

		_, err := uc.GetRecord(ctx, owner.ID, types.NewRecordID())
		gt.Error(t, err).Is(types.ErrNotFound)
	})

	t.Run("empty record ID is a bad request", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)
		owner := seedPrincipal(t, repo, "alice@example.com")

		_, err := uc.GetRecord(ctx, owner.ID, "")
		gt.Error(t, err).Is(types.ErrBadRequest)
	})
}
