package model

import (
	"slices"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

// Project is the isolation boundary owning a set of context records and a
// membership list. Project lifecycle is managed externally; the core only
// reads it for authorization checks.
type Project struct {
	ID           types.ProjectID
	Name         string
	Description  string
	OwnerID      types.PrincipalID
	Contributors []types.PrincipalID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks if the Project is valid. The owner must never also be
// listed as a contributor.
func (p *Project) Validate() error {
	if err := p.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid project ID")
	}
	if err := p.OwnerID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid owner ID", goerr.V(types.ProjectIDKey, p.ID))
	}
	if slices.Contains(p.Contributors, p.OwnerID) {
		return goerr.New("owner must not be listed as contributor",
			goerr.V(types.ProjectIDKey, p.ID),
			goerr.V(types.PrincipalIDKey, p.OwnerID))
	}
	return nil
}

// HasAccess reports whether the principal is the owner or a contributor
func (p *Project) HasAccess(id types.PrincipalID) bool {
	return p.OwnerID == id || slices.Contains(p.Contributors, id)
}

// IsOwner reports whether the principal owns the project
func (p *Project) IsOwner(id types.PrincipalID) bool {
	return p.OwnerID == id
}
