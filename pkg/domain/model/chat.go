package model

import "github.com/m-mizutani/goerr/v2"

// ChatRole is the author of a conversation turn
type ChatRole string

const (
	ChatRoleUser  ChatRole = "user"
	ChatRoleModel ChatRole = "model"
)

// Validate checks if the ChatRole is valid
func (r ChatRole) Validate() error {
	switch r {
	case ChatRoleUser, ChatRoleModel:
		return nil
	default:
		return goerr.New("invalid chat role", goerr.V("role", string(r)))
	}
}

// ChatTurn is one caller-supplied turn of conversation history. The core is
// stateless across calls; the full history arrives on every chat call.
type ChatTurn struct {
	Role    ChatRole
	Content string
}

// ChatResult is the outcome of a non-streaming chat call
type ChatResult struct {
	Message string
	Sources []*ScoredRecord
}

// StreamEventType discriminates events on a streaming chat response
type StreamEventType string

const (
	// StreamEventChunk carries one text increment
	StreamEventChunk StreamEventType = "chunk"
	// StreamEventSources carries the full list of cited sources, emitted
	// once after the last chunk
	StreamEventSources StreamEventType = "sources"
	// StreamEventError reports a mid-stream generation failure
	StreamEventError StreamEventType = "error"
	// StreamEventDone is the terminal sentinel
	StreamEventDone StreamEventType = "done"
)

// StreamEvent is one event of a streaming chat response
type StreamEvent struct {
	Type    StreamEventType
	Chunk   string
	Sources []*ScoredRecord
	Err     error
}
