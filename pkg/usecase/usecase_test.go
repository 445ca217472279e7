package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/teamctx-lab/teamctx/pkg/repository/memory"
	"golang.org/x/crypto/bcrypt"
)

// mockEmbedder returns canned vectors per text so retrieval tests control
// similarity exactly. Unknown texts get the fallback vector.
type mockEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := m.vectors[text]; ok {
			vectors[i] = v
			continue
		}
		if m.fallback == nil {
			return nil, goerr.Wrap(types.ErrProvider, "no canned vector for text")
		}
		vectors[i] = m.fallback
	}
	return vectors, nil
}

func (m *mockEmbedder) Dimension() int {
	return 3
}

// mockLLMSession is a mock gollem Session for testing
type mockLLMSession struct {
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
	generateStreamFn  func(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error)
}

func (s *mockLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s *mockLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return s.GenerateStream(ctx, input...)
}

func (s *mockLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	if s.generateContentFn != nil {
		return s.generateContentFn(ctx, input...)
	}
	return &gollem.Response{
		Texts: []string{"This is a test response."},
	}, nil
}

func (s *mockLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	if s.generateStreamFn != nil {
		return s.generateStreamFn(ctx, input...)
	}
	out := make(chan *gollem.Response)
	close(out)
	return out, nil
}

func (s *mockLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (s *mockLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (s *mockLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

// mockLLMClient is a mock gollem LLMClient for testing
type mockLLMClient struct {
	session *mockLLMSession
}

func (c *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if c.session != nil {
		return c.session, nil
	}
	return &mockLLMSession{}, nil
}

func (c *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

func promptOf(t *testing.T, input []gollem.Input) string {
	t.Helper()
	gt.Array(t, input).Length(1)
	text, ok := input[0].(gollem.Text)
	gt.Bool(t, ok).True()
	return string(text)
}

func seedPrincipal(t *testing.T, repo *memory.Memory, email string) *model.Principal {
	t.Helper()
	principal := &model.Principal{
		ID:    types.NewPrincipalID(),
		Email: email,
		Name:  email,
	}
	if err := repo.Principal().Put(context.Background(), principal); err != nil {
		t.Fatalf("failed to seed principal: %v", err)
	}
	return principal
}

func seedPrincipalWithPassword(t *testing.T, repo *memory.Memory, email, password string) *model.Principal {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	principal := &model.Principal{
		ID:             types.NewPrincipalID(),
		Email:          email,
		Name:           email,
		HashedPassword: string(hash),
	}
	if err := repo.Principal().Put(context.Background(), principal); err != nil {
		t.Fatalf("failed to seed principal: %v", err)
	}
	return principal
}

func seedProject(t *testing.T, repo *memory.Memory, owner types.PrincipalID, contributors ...types.PrincipalID) *model.Project {
	t.Helper()
	project := &model.Project{
		ID:           types.NewProjectID(),
		Name:         "test project",
		OwnerID:      owner,
		Contributors: contributors,
	}
	if err := repo.Project().Put(context.Background(), project); err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}
	return project
}

func seedRecord(t *testing.T, repo *memory.Memory, projectID types.ProjectID, content string, embedding []float32) *model.ContextRecord {
	t.Helper()
	inserted, err := repo.Context().Insert(context.Background(), []*model.ContextRecord{{
		ProjectID: projectID,
		Content:   content,
		Embedding: embedding,
		Metadata:  model.Metadata{Source: "seed.md"},
	}})
	if err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}
	return inserted[0]
}

func float64Ptr(v float64) *float64 {
	return &v
}
