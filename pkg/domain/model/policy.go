package model

import "github.com/m-mizutani/goerr/v2"

// RetrievalPolicy centralizes the retrieval defaults applied when a caller
// omits tuning parameters. Deployments override it from a TOML policy file.
type RetrievalPolicy struct {
	// SearchLimit is the default maximum number of search results
	SearchLimit int `toml:"search_limit"`

	// SearchThreshold is the default minimum similarity score for search
	SearchThreshold float64 `toml:"search_threshold"`

	// MaxContextChunks is the default number of context chunks grounding
	// a chat response
	MaxContextChunks int `toml:"max_context_chunks"`

	// ChatThreshold is the default minimum similarity score for chat
	// grounding retrieval
	ChatThreshold float64 `toml:"chat_threshold"`
}

// DefaultRetrievalPolicy returns the built-in retrieval defaults
func DefaultRetrievalPolicy() *RetrievalPolicy {
	return &RetrievalPolicy{
		SearchLimit:      10,
		SearchThreshold:  0.5,
		MaxContextChunks: 5,
		ChatThreshold:    0.5,
	}
}

// Validate checks if the RetrievalPolicy is valid
func (p *RetrievalPolicy) Validate() error {
	if p.SearchLimit <= 0 {
		return goerr.New("search_limit must be positive", goerr.V("search_limit", p.SearchLimit))
	}
	if p.SearchThreshold < -1 || p.SearchThreshold > 1 {
		return goerr.New("search_threshold must be within [-1, 1]", goerr.V("search_threshold", p.SearchThreshold))
	}
	if p.MaxContextChunks <= 0 {
		return goerr.New("max_context_chunks must be positive", goerr.V("max_context_chunks", p.MaxContextChunks))
	}
	if p.ChatThreshold < -1 || p.ChatThreshold > 1 {
		return goerr.New("chat_threshold must be within [-1, 1]", goerr.V("chat_threshold", p.ChatThreshold))
	}
	return nil
}
