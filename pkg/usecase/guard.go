package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
)

// AccessLevel is the right required for an operation on a project
type AccessLevel string

const (
	// AccessLevelRead allows querying and storing context in the project
	AccessLevelRead AccessLevel = "read"
	// AccessLevelOwner is reserved for destructive project operations
	AccessLevelOwner AccessLevel = "owner"
)

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}

// authorizeProject loads the project and checks the principal's right on
// it. A missing project yields NotFound; a project the principal cannot
// access at the required level yields Forbidden. Membership is re-read on
// every call; there is no decision caching.
func (uc *UseCases) authorizeProject(ctx context.Context, principalID types.PrincipalID, projectID types.ProjectID, level AccessLevel) (*model.Project, error) {
	if err := projectID.Validate(); err != nil {
		return nil, goerr.Wrap(types.ErrBadRequest, "invalid project ID", goerr.V(types.ProjectIDKey, projectID))
	}

	project, err := uc.repo.Project().Get(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, err
		}
		return nil, goerr.Wrap(err, "failed to load project", goerr.V(types.ProjectIDKey, projectID))
	}

	switch level {
	case AccessLevelRead:
		if !project.HasAccess(principalID) {
			return nil, goerr.Wrap(types.ErrForbidden, "principal has no access to project",
				goerr.V(types.ProjectIDKey, projectID),
				goerr.V(types.PrincipalIDKey, principalID))
		}
	case AccessLevelOwner:
		if !project.IsOwner(principalID) {
			return nil, goerr.Wrap(types.ErrForbidden, "principal does not own project",
				goerr.V(types.ProjectIDKey, projectID),
				goerr.V(types.PrincipalIDKey, principalID))
		}
	default:
		return nil, goerr.New("unknown access level", goerr.V("level", level))
	}

	return project, nil
}
