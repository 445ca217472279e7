package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"github.com/teamctx-lab/teamctx/pkg/utils/logging"
)

//go:embed prompt/grounded.md
var groundedPromptTmpl string

//go:embed prompt/ungrounded.md
var ungroundedPromptTmpl string

var (
	groundedPrompt   = template.Must(template.New("grounded").Parse(groundedPromptTmpl))
	ungroundedPrompt = template.Must(template.New("ungrounded").Parse(ungroundedPromptTmpl))
)

// ChatInput is one grounded chat call. The caller carries the full
// conversation history on every call; nothing is kept server-side between
// calls. MaxContextChunks and Threshold fall back to the retrieval policy
// defaults when unset.
type ChatInput struct {
	ProjectID        types.ProjectID
	Message          string
	History          []model.ChatTurn
	MaxContextChunks int
	Threshold        *float64
}

func (in *ChatInput) validate() error {
	if in.Message == "" {
		return goerr.Wrap(types.ErrBadRequest, "message cannot be empty",
			goerr.V(types.ProjectIDKey, in.ProjectID))
	}
	for i, turn := range in.History {
		if err := turn.Role.Validate(); err != nil {
			return goerr.Wrap(types.ErrBadRequest, "invalid history turn", goerr.V("turn", i))
		}
	}
	return nil
}

// Chat answers the message grounded on the project's most relevant context
// records and returns the full response with the records it was grounded
// on. Cited records get their access count bumped through the shared
// retrieval path.
func (uc *UseCases) Chat(ctx context.Context, principalID types.PrincipalID, input *ChatInput) (*model.ChatResult, error) {
	prompt, sources, err := uc.prepareChat(ctx, principalID, input)
	if err != nil {
		return nil, err
	}

	session, err := uc.newChatSession(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return nil, goerr.Wrap(types.ErrProvider, "failed to generate chat response",
			goerr.V(types.ProjectIDKey, input.ProjectID),
			goerr.V("cause", err.Error()))
	}
	if resp == nil || len(resp.Texts) == 0 {
		return nil, goerr.Wrap(types.ErrProvider, "generation returned no text",
			goerr.V(types.ProjectIDKey, input.ProjectID))
	}

	return &model.ChatResult{
		Message: strings.Join(resp.Texts, ""),
		Sources: sources,
	}, nil
}

// ChatStream answers the message as a stream of events: zero or more chunk
// events carrying text increments, one sources event, then done. The
// channel is closed after the terminal event. Cancelling ctx stops the
// upstream generation and surfaces as an error event.
func (uc *UseCases) ChatStream(ctx context.Context, principalID types.PrincipalID, input *ChatInput) (<-chan *model.StreamEvent, error) {
	prompt, sources, err := uc.prepareChat(ctx, principalID, input)
	if err != nil {
		return nil, err
	}

	session, err := uc.newChatSession(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := session.GenerateStream(ctx, gollem.Text(prompt))
	if err != nil {
		return nil, goerr.Wrap(types.ErrProvider, "failed to start chat stream",
			goerr.V(types.ProjectIDKey, input.ProjectID),
			goerr.V("cause", err.Error()))
	}

	events := make(chan *model.StreamEvent)
	go func() {
		defer close(events)

		for resp := range stream {
			if resp == nil {
				continue
			}
			for _, text := range resp.Texts {
				if text == "" {
					continue
				}
				select {
				case events <- &model.StreamEvent{Type: model.StreamEventChunk, Chunk: text}:
				case <-ctx.Done():
					return
				}
			}
		}

		if err := ctx.Err(); err != nil {
			events <- &model.StreamEvent{
				Type: model.StreamEventError,
				Err:  goerr.Wrap(types.ErrProvider, "chat stream interrupted", goerr.V("cause", err.Error())),
			}
			return
		}

		events <- &model.StreamEvent{Type: model.StreamEventSources, Sources: sources}
		events <- &model.StreamEvent{Type: model.StreamEventDone}
	}()

	return events, nil
}

// prepareChat runs the shared front half of both chat paths: validate,
// authorize, retrieve grounding records, and render the prompt.
func (uc *UseCases) prepareChat(ctx context.Context, principalID types.PrincipalID, input *ChatInput) (string, []*model.ScoredRecord, error) {
	if uc.llmClient == nil {
		return "", nil, goerr.Wrap(types.ErrConfiguration, "LLM client is not configured")
	}
	if err := input.validate(); err != nil {
		return "", nil, err
	}

	limit := input.MaxContextChunks
	if limit <= 0 {
		limit = uc.policy.MaxContextChunks
	}
	threshold := uc.policy.ChatThreshold
	if input.Threshold != nil {
		threshold = *input.Threshold
	}

	project, err := uc.authorizeProject(ctx, principalID, input.ProjectID, AccessLevelRead)
	if err != nil {
		return "", nil, err
	}

	sources, err := uc.retrieve(ctx, input.ProjectID, input.Message, limit, threshold)
	if err != nil {
		return "", nil, err
	}

	prompt, err := buildChatPrompt(project.Name, input.Message, input.History, sources)
	if err != nil {
		return "", nil, err
	}

	logging.From(ctx).Debug("prepared chat prompt",
		"project_id", input.ProjectID,
		"sources", len(sources),
		"history_turns", len(input.History))

	return prompt, sources, nil
}

func (uc *UseCases) newChatSession(ctx context.Context) (gollem.Session, error) {
	session, err := uc.llmClient.NewSession(ctx)
	if err != nil {
		return nil, goerr.Wrap(types.ErrProvider, "failed to create LLM session",
			goerr.V("cause", err.Error()))
	}
	return session, nil
}

type promptContext struct {
	Index     int
	Relevance string
	Source    string
	Content   string
}

type promptTurn struct {
	Role    string
	Content string
}

type promptData struct {
	ProjectName string
	Contexts    []promptContext
	History     []promptTurn
	Message     string
}

// buildChatPrompt renders the grounded prompt with numbered context blocks,
// or the ungrounded variant disclosing the missing project grounding when
// no records cleared the threshold.
func buildChatPrompt(projectName, message string, history []model.ChatTurn, sources []*model.ScoredRecord) (string, error) {
	if projectName == "" {
		projectName = "this project"
	}

	data := promptData{
		ProjectName: projectName,
		Message:     message,
	}

	for i, source := range sources {
		sourceName := source.Record.Metadata.Source
		if sourceName == "" {
			sourceName = "unknown"
		}
		data.Contexts = append(data.Contexts, promptContext{
			Index:     i + 1,
			Relevance: fmt.Sprintf("%.2f%%", source.Score*100),
			Source:    sourceName,
			Content:   source.Record.Content,
		})
	}

	for _, turn := range history {
		data.History = append(data.History, promptTurn{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	tmpl := groundedPrompt
	if len(data.Contexts) == 0 {
		tmpl = ungroundedPrompt
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", goerr.Wrap(err, "failed to render chat prompt")
	}

	return buf.String(), nil
}
