package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

type contextRepository struct {
	mu sync.RWMutex
	// records keeps insertion order; the ranker's tie-break depends on it
	records []*model.ContextRecord
	byID    map[types.RecordID]*model.ContextRecord
}

func newContextRepository() *contextRepository {
	return &contextRepository{
		byID: make(map[types.RecordID]*model.ContextRecord),
	}
}

// copyRecord creates a deep copy of a context record
func copyRecord(r *model.ContextRecord) *model.ContextRecord {
	copied := &model.ContextRecord{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Content:     r.Content,
		CreatedBy:   r.CreatedBy,
		Metadata:    r.Metadata.Clone(),
		CreatedAt:   r.CreatedAt,
		AccessCount: r.AccessCount,
	}

	if r.Embedding != nil {
		copied.Embedding = make([]float32, len(r.Embedding))
		copy(copied.Embedding, r.Embedding)
	}

	return copied
}

func (r *contextRepository) Insert(ctx context.Context, records []*model.ContextRecord) ([]*model.ContextRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	inserted := make([]*model.ContextRecord, 0, len(records))
	for _, record := range records {
		created := copyRecord(record)
		if created.ID == "" {
			created.ID = types.NewRecordID()
		}
		created.CreatedAt = now
		created.AccessCount = 0

		if err := created.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid context record")
		}

		r.records = append(r.records, created)
		r.byID[created.ID] = created
		inserted = append(inserted, copyRecord(created))
	}

	return inserted, nil
}

func (r *contextRepository) Get(ctx context.Context, id types.RecordID) (*model.ContextRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, exists := r.byID[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "context record not found", goerr.V(types.RecordIDKey, id))
	}

	return copyRecord(record), nil
}

func (r *contextRepository) ListByProject(ctx context.Context, projectID types.ProjectID) ([]*model.ContextRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.ContextRecord, 0)
	for _, record := range r.records {
		if record.ProjectID == projectID {
			result = append(result, copyRecord(record))
		}
	}

	return result, nil
}

func (r *contextRepository) IncrementAccessCount(ctx context.Context, id types.RecordID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, exists := r.byID[id]
	if !exists {
		return goerr.Wrap(types.ErrNotFound, "context record not found", goerr.V(types.RecordIDKey, id))
	}

	record.AccessCount++
	return nil
}
