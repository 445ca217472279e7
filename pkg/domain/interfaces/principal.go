package interfaces

import (
	"context"

	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

// PrincipalRepository is the identity lookup surface consumed by the
// identity resolver. Account registration is owned by an external
// collaborator; Put exists so deployments and tests can seed principals.
type PrincipalRepository interface {
	// Get retrieves a principal by ID
	Get(ctx context.Context, id types.PrincipalID) (*model.Principal, error)

	// GetByEmail retrieves a principal by email address
	GetByEmail(ctx context.Context, email string) (*model.Principal, error)

	// GetByAPIKeyID retrieves the principal owning the given API key ID
	GetByAPIKeyID(ctx context.Context, keyID types.APIKeyID) (*model.Principal, error)

	// Put creates or replaces a principal
	Put(ctx context.Context, principal *model.Principal) error
}
