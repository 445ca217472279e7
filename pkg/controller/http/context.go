package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/model/auth"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/teamctx-lab/teamctx/pkg/usecase"
	"github.com/teamctx-lab/teamctx/pkg/utils/errutil"
	"github.com/teamctx-lab/teamctx/pkg/utils/logging"
)

type chunkRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ingestRequest struct {
	ProjectID string         `json:"project_id"`
	Chunks    []chunkRequest `json:"chunks"`
	Source    string         `json:"source,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
}

type ingestResponse struct {
	VectorsStored       int      `json:"vectors_stored"`
	VectorIDs           []string `json:"vector_ids"`
	EmbeddingDimensions int      `json:"embedding_dimensions"`
}

type searchRequest struct {
	ProjectID           string   `json:"project_id"`
	Query               string   `json:"query"`
	Limit               int      `json:"limit,omitempty"`
	SimilarityThreshold *float64 `json:"similarity_threshold,omitempty"`
}

type metadataResponse struct {
	Source string            `json:"source,omitempty"`
	Tags   []string          `json:"tags,omitempty"`
	Extra  map[string]string `json:"extra,omitempty"`
}

type recordResponse struct {
	ID              string           `json:"id"`
	Content         string           `json:"content"`
	SimilarityScore *float64         `json:"similarity_score,omitempty"`
	Metadata        metadataResponse `json:"metadata"`
	CreatedAt       time.Time        `json:"created_at"`
	AccessCount     int64            `json:"access_count"`
}

type chatTurnRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	ProjectID           string            `json:"project_id"`
	Message             string            `json:"message"`
	History             []chatTurnRequest `json:"history,omitempty"`
	MaxContextChunks    int               `json:"max_context_chunks,omitempty"`
	SimilarityThreshold *float64          `json:"similarity_threshold,omitempty"`
	Stream              bool              `json:"stream,omitempty"`
}

type chatResponse struct {
	Message string           `json:"message"`
	Sources []recordResponse `json:"sources"`
}

func toRecordResponse(record *model.ContextRecord, score *float64) recordResponse {
	return recordResponse{
		ID:              record.ID.String(),
		Content:         record.Content,
		SimilarityScore: score,
		Metadata: metadataResponse{
			Source: record.Metadata.Source,
			Tags:   record.Metadata.Tags,
			Extra:  record.Metadata.Extra,
		},
		CreatedAt:   record.CreatedAt,
		AccessCount: record.AccessCount,
	}
}

func toScoredResponses(scored []*model.ScoredRecord) []recordResponse {
	results := make([]recordResponse, len(scored))
	for i, s := range scored {
		score := s.Score
		results[i] = toRecordResponse(s.Record, &score)
	}
	return results
}

func principalIDOf(r *http.Request) (types.PrincipalID, error) {
	id, ok := auth.PrincipalIDFromContext(r.Context())
	if !ok {
		return "", goerr.Wrap(types.ErrUnauthenticated, "no principal in request context")
	}
	return id, nil
}

func ingestHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principalID, err := principalIDOf(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrBadRequest, "invalid ingest request body"))
			return
		}

		chunks := make([]model.Chunk, len(req.Chunks))
		for i, c := range req.Chunks {
			chunks[i] = model.Chunk{Content: c.Content, Metadata: c.Metadata}
		}

		out, err := uc.Ingest(r.Context(), principalID, &usecase.IngestInput{
			ProjectID: types.ProjectID(req.ProjectID),
			Chunks:    chunks,
			Source:    req.Source,
			Tags:      req.Tags,
		})
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		ids := make([]string, len(out.VectorIDs))
		for i, id := range out.VectorIDs {
			ids[i] = id.String()
		}

		writeJSON(r.Context(), w, http.StatusOK, ingestResponse{
			VectorsStored:       out.VectorsStored,
			VectorIDs:           ids,
			EmbeddingDimensions: out.EmbeddingDimensions,
		})
	}
}

func searchHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principalID, err := principalIDOf(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrBadRequest, "invalid search request body"))
			return
		}

		results, err := uc.Search(r.Context(), principalID, &usecase.SearchInput{
			ProjectID: types.ProjectID(req.ProjectID),
			Query:     req.Query,
			Limit:     req.Limit,
			Threshold: req.SimilarityThreshold,
		})
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		writeJSON(r.Context(), w, http.StatusOK, toScoredResponses(results))
	}
}

func getRecordHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principalID, err := principalIDOf(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		record, err := uc.GetRecord(r.Context(), principalID, types.RecordID(chi.URLParam(r, "recordID")))
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		writeJSON(r.Context(), w, http.StatusOK, toRecordResponse(record, nil))
	}
}

func chatHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principalID, err := principalIDOf(r)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(types.ErrBadRequest, "invalid chat request body"))
			return
		}

		history := make([]model.ChatTurn, len(req.History))
		for i, turn := range req.History {
			history[i] = model.ChatTurn{Role: model.ChatRole(turn.Role), Content: turn.Content}
		}

		input := &usecase.ChatInput{
			ProjectID:        types.ProjectID(req.ProjectID),
			Message:          req.Message,
			History:          history,
			MaxContextChunks: req.MaxContextChunks,
			Threshold:        req.SimilarityThreshold,
		}

		if req.Stream {
			streamChat(w, r, uc, principalID, input)
			return
		}

		result, err := uc.Chat(r.Context(), principalID, input)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err)
			return
		}

		writeJSON(r.Context(), w, http.StatusOK, chatResponse{
			Message: result.Message,
			Sources: toScoredResponses(result.Sources),
		})
	}
}

// streamChat delivers the chat response as server-sent events. Once the
// stream starts, failures can only be reported in-band as an error event.
func streamChat(w http.ResponseWriter, r *http.Request, uc *usecase.UseCases, principalID types.PrincipalID, input *usecase.ChatInput) {
	events, err := uc.ChatStream(r.Context(), principalID, input)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		errutil.HandleHTTP(r.Context(), w, goerr.New("response writer does not support streaming"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range events {
		switch event.Type {
		case model.StreamEventChunk:
			writeSSE(w, flusher, string(event.Type), map[string]string{"content": event.Chunk})
		case model.StreamEventSources:
			writeSSE(w, flusher, string(event.Type), toScoredResponses(event.Sources))
		case model.StreamEventError:
			errutil.Handle(r.Context(), event.Err, "chat stream failed")
			writeSSE(w, flusher, string(event.Type), map[string]string{"error": event.Err.Error()})
		case model.StreamEventDone:
			writeSSE(w, flusher, string(event.Type), map[string]string{})
		}
	}
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Default().Error("failed to encode SSE payload", "event", eventType, "error", err.Error())
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data) //nolint:errcheck // stream already committed
	flusher.Flush()
}
