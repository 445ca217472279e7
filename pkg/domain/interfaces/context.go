package interfaces

import (
	"context"

	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

// ContextRepository defines the interface for context record persistence.
// Records are partitioned by project; nothing here crosses that boundary.
type ContextRepository interface {
	// Insert persists records in one bulk operation and returns them with
	// assigned IDs and timestamps.
	Insert(ctx context.Context, records []*model.ContextRecord) ([]*model.ContextRecord, error)

	// Get retrieves one record by ID
	Get(ctx context.Context, id types.RecordID) (*model.ContextRecord, error)

	// ListByProject retrieves every record belonging to the project, in
	// insertion order. The read is a snapshot without transactional
	// isolation against concurrent inserts.
	ListByProject(ctx context.Context, projectID types.ProjectID) ([]*model.ContextRecord, error)

	// IncrementAccessCount adds 1 to the record's access count as an
	// independent atomic update.
	IncrementAccessCount(ctx context.Context, id types.RecordID) error
}
