package model

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

// Principal is a resolved, verified identity. It is constructed once per
// request by the identity resolver and treated as immutable afterwards.
type Principal struct {
	ID    types.PrincipalID
	Email string
	Name  string

	// HashedPassword and HashedAPIKey are one-way bcrypt hashes. The plain
	// values are never stored.
	HashedPassword string
	HashedAPIKey   string

	// APIKeyID is the non-secret identifier embedded in the principal's
	// API key credential, used for direct lookup during verification.
	APIKeyID types.APIKeyID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks if the Principal is valid
func (p *Principal) Validate() error {
	if err := p.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid principal ID")
	}
	if p.Email == "" {
		return goerr.New("principal email is required", goerr.V(types.PrincipalIDKey, p.ID))
	}
	return nil
}
