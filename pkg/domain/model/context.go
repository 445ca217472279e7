package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

// EmbeddingDimension is the dimension of the embedding vector.
// Gemini text-embedding-004 uses 768 dimensions.
const EmbeddingDimension = 768

// Metadata is the envelope attached to a context record: known fields plus
// an open string-keyed map for caller extensions.
type Metadata struct {
	Source string
	Tags   []string
	Extra  map[string]string
}

// Clone returns a deep copy of the metadata
func (m Metadata) Clone() Metadata {
	copied := Metadata{Source: m.Source}
	if m.Tags != nil {
		copied.Tags = make([]string, len(m.Tags))
		copy(copied.Tags, m.Tags)
	}
	if m.Extra != nil {
		copied.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			copied.Extra[k] = v
		}
	}
	return copied
}

// ContextRecord is a stored (content, embedding, metadata) tuple scoped to
// exactly one project. Content and embedding are immutable once written;
// only AccessCount changes after insert.
type ContextRecord struct {
	ID          types.RecordID
	ProjectID   types.ProjectID
	Content     string
	Embedding   []float32
	CreatedBy   types.PrincipalID
	Metadata    Metadata
	CreatedAt   time.Time
	AccessCount int64
}

// Validate checks if the ContextRecord is valid
func (r *ContextRecord) Validate() error {
	if err := r.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid record ID")
	}
	if err := r.ProjectID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid project ID", goerr.V(types.RecordIDKey, r.ID))
	}
	if r.Content == "" {
		return goerr.New("record content cannot be empty", goerr.V(types.RecordIDKey, r.ID))
	}
	return nil
}

// Chunk is a caller-supplied (content, metadata) pair to be embedded and
// stored as a ContextRecord.
type Chunk struct {
	Content  string
	Metadata map[string]string
}

// ScoredRecord pairs a record with its similarity score for a query
type ScoredRecord struct {
	Record *ContextRecord
	Score  float64
}
