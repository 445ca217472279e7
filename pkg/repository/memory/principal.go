package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

type principalRepository struct {
	mu         sync.RWMutex
	principals map[types.PrincipalID]*model.Principal
	byEmail    map[string]types.PrincipalID
	byKeyID    map[types.APIKeyID]types.PrincipalID
}

func newPrincipalRepository() *principalRepository {
	return &principalRepository{
		principals: make(map[types.PrincipalID]*model.Principal),
		byEmail:    make(map[string]types.PrincipalID),
		byKeyID:    make(map[types.APIKeyID]types.PrincipalID),
	}
}

func copyPrincipal(p *model.Principal) *model.Principal {
	copied := *p
	return &copied
}

func (r *principalRepository) Get(ctx context.Context, id types.PrincipalID) (*model.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	principal, exists := r.principals[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "principal not found", goerr.V(types.PrincipalIDKey, id))
	}

	return copyPrincipal(principal), nil
}

func (r *principalRepository) GetByEmail(ctx context.Context, email string) (*model.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byEmail[email]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "principal not found", goerr.V("email", email))
	}

	return copyPrincipal(r.principals[id]), nil
}

func (r *principalRepository) GetByAPIKeyID(ctx context.Context, keyID types.APIKeyID) (*model.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byKeyID[keyID]
	if !exists {
		return nil, goerr.Wrap(types.ErrNotFound, "principal not found", goerr.V("api_key_id", keyID))
	}

	return copyPrincipal(r.principals[id]), nil
}

func (r *principalRepository) Put(ctx context.Context, principal *model.Principal) error {
	if err := principal.Validate(); err != nil {
		return goerr.Wrap(err, "invalid principal")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyPrincipal(principal)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = time.Now().UTC()

	// Drop stale secondary index entries when email or key ID changes
	if prev, ok := r.principals[stored.ID]; ok {
		if prev.Email != stored.Email {
			delete(r.byEmail, prev.Email)
		}
		if prev.APIKeyID != stored.APIKeyID {
			delete(r.byKeyID, prev.APIKeyID)
		}
	}

	r.principals[stored.ID] = stored
	r.byEmail[stored.Email] = stored.ID
	if stored.APIKeyID != "" {
		r.byKeyID[stored.APIKeyID] = stored.ID
	}
	return nil
}
