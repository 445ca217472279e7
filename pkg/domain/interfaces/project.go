package interfaces

import (
	"context"

	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

// ProjectRepository is the lookup surface the core consumes for
// authorization checks. Project lifecycle is owned by an external
// collaborator; Put exists so deployments and tests can seed projects.
type ProjectRepository interface {
	// Get retrieves a project by ID
	Get(ctx context.Context, id types.ProjectID) (*model.Project, error)

	// Put creates or replaces a project
	Put(ctx context.Context, project *model.Project) error
}
