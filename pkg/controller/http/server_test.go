package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/gollem"
	httpctrl "github.com/teamctx-lab/teamctx/pkg/controller/http"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/teamctx-lab/teamctx/pkg/repository/memory"
	"github.com/teamctx-lab/teamctx/pkg/usecase"
	"golang.org/x/crypto/bcrypt"
)

// staticEmbedder maps every text to the same vector so any stored record
// matches any query with score 1.
type staticEmbedder struct{}

func (staticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (staticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (staticEmbedder) Dimension() int {
	return 3
}

// staticLLMSession answers every generation with a fixed message
type staticLLMSession struct{}

func (s staticLLMSession) Generate(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (*gollem.Response, error) {
	return s.GenerateContent(ctx, input...)
}

func (s staticLLMSession) Stream(ctx context.Context, input []gollem.Input, opts ...gollem.GenerateOption) (<-chan *gollem.Response, error) {
	return s.GenerateStream(ctx, input...)
}

func (staticLLMSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return &gollem.Response{Texts: []string{"The answer is 42."}}, nil
}

func (staticLLMSession) GenerateStream(ctx context.Context, input ...gollem.Input) (<-chan *gollem.Response, error) {
	out := make(chan *gollem.Response, 2)
	out <- &gollem.Response{Texts: []string{"The answer"}}
	out <- &gollem.Response{Texts: []string{" is 42."}}
	close(out)
	return out, nil
}

func (staticLLMSession) History() (*gollem.History, error) {
	return nil, nil
}

func (staticLLMSession) AppendHistory(*gollem.History) error {
	return nil
}

func (staticLLMSession) CountToken(ctx context.Context, input ...gollem.Input) (int, error) {
	return 0, nil
}

type staticLLMClient struct{}

func (staticLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return staticLLMSession{}, nil
}

func (staticLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return nil, nil
}

type testEnv struct {
	server    *httpctrl.Server
	repo      *memory.Memory
	uc        *usecase.UseCases
	principal *model.Principal
	project   *model.Project
	token     string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	repo := memory.New()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	principal := &model.Principal{
		ID:             types.NewPrincipalID(),
		Email:          "alice@example.com",
		Name:           "Alice",
		HashedPassword: string(hash),
	}
	if err := repo.Principal().Put(ctx, principal); err != nil {
		t.Fatalf("failed to seed principal: %v", err)
	}

	project := &model.Project{
		ID:      types.NewProjectID(),
		Name:    "Test Project",
		OwnerID: principal.ID,
	}
	if err := repo.Project().Put(ctx, project); err != nil {
		t.Fatalf("failed to seed project: %v", err)
	}

	uc := usecase.New(repo,
		usecase.WithJWTSecret([]byte("test-jwt-secret")),
		usecase.WithEmbedding(staticEmbedder{}),
		usecase.WithLLMClient(staticLLMClient{}),
	)

	pair, err := uc.IssueTokens(ctx, principal.ID)
	if err != nil {
		t.Fatalf("failed to issue tokens: %v", err)
	}

	return &testEnv{
		server:    httpctrl.New(uc),
		repo:      repo,
		uc:        uc,
		principal: principal,
		project:   project,
		token:     pair.AccessToken,
	}
}

func (env *testEnv) request(t *testing.T, method, path string, body any, authorize bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorize {
		req.Header.Set("Authorization", "Bearer "+env.token)
	}

	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	rec := env.request(t, http.MethodGet, "/health", nil, false)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}
}

func TestLoginEndpoint(t *testing.T) {
	t.Run("valid credentials return tokens and set the cookie", func(t *testing.T) {
		env := setupTestEnv(t)

		rec := env.request(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "correct horse",
		}, false)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
			TokenType    string `json:"token_type"`
		}
		decodeBody(t, rec, &body)
		if body.AccessToken == "" || body.RefreshToken == "" {
			t.Error("expected both tokens in the response")
		}
		if body.TokenType != "bearer" {
			t.Errorf("expected token_type bearer, got %q", body.TokenType)
		}

		var found bool
		for _, cookie := range rec.Result().Cookies() {
			if cookie.Name == "access_token" {
				found = true
				if !cookie.HttpOnly {
					t.Error("access token cookie must be HttpOnly")
				}
				if cookie.Value != body.AccessToken {
					t.Error("cookie must carry the issued access token")
				}
			}
		}
		if !found {
			t.Error("expected access_token cookie to be set")
		}
	})

	t.Run("wrong password is 401", func(t *testing.T) {
		env := setupTestEnv(t)

		rec := env.request(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email":    "alice@example.com",
			"password": "battery staple",
		}, false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		env := setupTestEnv(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("not json"))
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRefreshEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	loginRec := env.request(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "correct horse",
	}, false)
	if loginRec.Code != http.StatusOK {
		t.Fatalf("login failed: %d", loginRec.Code)
	}

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	decodeBody(t, loginRec, &pair)

	t.Run("valid refresh token yields a fresh pair", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/auth/refresh", map[string]string{
			"refresh_token": pair.RefreshToken,
		}, false)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var renewed struct {
			AccessToken string `json:"access_token"`
		}
		decodeBody(t, rec, &renewed)
		if renewed.AccessToken == "" {
			t.Error("expected a fresh access token")
		}
	})

	t.Run("access token is rejected for refresh", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/auth/refresh", map[string]string{
			"refresh_token": pair.AccessToken,
		}, false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("missing refresh token is 400", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/auth/refresh", map[string]string{}, false)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestMeEndpoint(t *testing.T) {
	t.Run("authenticated request returns the principal", func(t *testing.T) {
		env := setupTestEnv(t)

		rec := env.request(t, http.MethodGet, "/api/v1/auth/me", nil, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		decodeBody(t, rec, &body)
		if body.Email != "alice@example.com" {
			t.Errorf("unexpected email: %s", body.Email)
		}
		if body.ID != env.principal.ID.String() {
			t.Errorf("unexpected principal ID: %s", body.ID)
		}
	})

	t.Run("unauthenticated request is 401", func(t *testing.T) {
		env := setupTestEnv(t)

		rec := env.request(t, http.MethodGet, "/api/v1/auth/me", nil, false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("cookie authenticates without a header", func(t *testing.T) {
		env := setupTestEnv(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: env.token})
		rec := httptest.NewRecorder()
		env.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestContextEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("unauthenticated requests are rejected", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/context/search", map[string]string{
			"project_id": env.project.ID.String(),
			"query":      "anything",
		}, false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	var vectorID string

	t.Run("ingest stores chunks", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/context/ingest", map[string]any{
			"project_id": env.project.ID.String(),
			"chunks": []map[string]any{
				{"content": "The answer is 42", "metadata": map[string]string{"page": "1"}},
			},
			"source": "handbook.md",
			"tags":   []string{"docs"},
		}, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			VectorsStored       int      `json:"vectors_stored"`
			VectorIDs           []string `json:"vector_ids"`
			EmbeddingDimensions int      `json:"embedding_dimensions"`
		}
		decodeBody(t, rec, &body)
		if body.VectorsStored != 1 || len(body.VectorIDs) != 1 {
			t.Fatalf("unexpected ingest response: %+v", body)
		}
		if body.EmbeddingDimensions != 3 {
			t.Errorf("unexpected dimensions: %d", body.EmbeddingDimensions)
		}
		vectorID = body.VectorIDs[0]
	})

	t.Run("search returns a bare array of scored records", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/context/search", map[string]any{
			"project_id": env.project.ID.String(),
			"query":      "what is the answer",
		}, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if trimmed := strings.TrimSpace(rec.Body.String()); !strings.HasPrefix(trimmed, "[") {
			t.Fatalf("expected a top-level JSON array, got: %s", trimmed)
		}

		var results []struct {
			ID              string   `json:"id"`
			Content         string   `json:"content"`
			SimilarityScore *float64 `json:"similarity_score"`
		}
		decodeBody(t, rec, &results)
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].ID != vectorID {
			t.Errorf("unexpected record ID: %s", results[0].ID)
		}
		if results[0].SimilarityScore == nil {
			t.Error("expected a similarity score on search results")
		}
	})

	t.Run("get record reflects the access count", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/v1/context/"+vectorID, nil, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			ID          string `json:"id"`
			Content     string `json:"content"`
			AccessCount int64  `json:"access_count"`
		}
		decodeBody(t, rec, &body)
		if body.Content != "The answer is 42" {
			t.Errorf("unexpected content: %s", body.Content)
		}
		// One search above cited the record once
		if body.AccessCount != 1 {
			t.Errorf("expected access count 1, got %d", body.AccessCount)
		}
	})

	t.Run("unknown record is 404", func(t *testing.T) {
		rec := env.request(t, http.MethodGet, "/api/v1/context/"+types.NewRecordID().String(), nil, true)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("unknown project is 404", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/context/search", map[string]string{
			"project_id": types.NewProjectID().String(),
			"query":      "anything",
		}, true)
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("empty query is 400", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/context/search", map[string]string{
			"project_id": env.project.ID.String(),
			"query":      "",
		}, true)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestChatEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	ingestRec := env.request(t, http.MethodPost, "/api/v1/context/ingest", map[string]any{
		"project_id": env.project.ID.String(),
		"chunks":     []map[string]string{{"content": "The answer is 42"}},
	}, true)
	if ingestRec.Code != http.StatusOK {
		t.Fatalf("ingest failed: %d", ingestRec.Code)
	}

	t.Run("returns the answer with its sources", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/context/chat", map[string]any{
			"project_id": env.project.ID.String(),
			"message":    "What is the answer?",
		}, true)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Message string `json:"message"`
			Sources []struct {
				Content string `json:"content"`
			} `json:"sources"`
		}
		decodeBody(t, rec, &body)
		if body.Message != "The answer is 42." {
			t.Errorf("unexpected message: %s", body.Message)
		}
		if len(body.Sources) != 1 {
			t.Fatalf("expected 1 source, got %d", len(body.Sources))
		}
		if body.Sources[0].Content != "The answer is 42" {
			t.Errorf("unexpected source content: %s", body.Sources[0].Content)
		}
	})

	t.Run("empty message is 400", func(t *testing.T) {
		rec := env.request(t, http.MethodPost, "/api/v1/context/chat", map[string]any{
			"project_id": env.project.ID.String(),
			"message":    "",
		}, true)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestChatStreamEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	ingestRec := env.request(t, http.MethodPost, "/api/v1/context/ingest", map[string]any{
		"project_id": env.project.ID.String(),
		"chunks":     []map[string]string{{"content": "The answer is 42"}},
	}, true)
	if ingestRec.Code != http.StatusOK {
		t.Fatalf("ingest failed: %d", ingestRec.Code)
	}

	rec := env.request(t, http.MethodPost, "/api/v1/context/chat", map[string]any{
		"project_id": env.project.ID.String(),
		"message":    "What is the answer?",
		"stream":     true,
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("unexpected content type: %s", ct)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"event: chunk\ndata: {\"content\":\"The answer\"}",
		"event: chunk\ndata: {\"content\":\" is 42.\"}",
		"event: sources\n",
		"event: done\ndata: {}",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("stream body missing %q:\n%s", want, body)
		}
	}

	// Chunks arrive before sources, sources before done
	chunkIdx := strings.Index(body, "event: chunk")
	sourcesIdx := strings.Index(body, "event: sources")
	doneIdx := strings.Index(body, "event: done")
	if !(chunkIdx < sourcesIdx && sourcesIdx < doneIdx) {
		t.Errorf("unexpected event order at offsets %d/%d/%d", chunkIdx, sourcesIdx, doneIdx)
	}

	// The sources event carries the cited record
	if !strings.Contains(body, "The answer is 42") {
		t.Error("sources event missing the cited record content")
	}
}

func TestStreamErrorsAreInBand(t *testing.T) {
	// A project the principal cannot read fails before the stream starts,
	// so the client still gets a normal HTTP error.
	env := setupTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/context/chat", map[string]any{
		"project_id": types.NewProjectID().String(),
		"message":    "question",
		"stream":     true,
	}, true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct == "text/event-stream" {
		t.Error("pre-stream failures must not commit an event stream")
	}
}
