package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type projectDoc struct {
	ID           types.ProjectID     `firestore:"ID"`
	Name         string              `firestore:"Name"`
	Description  string              `firestore:"Description,omitempty"`
	OwnerID      types.PrincipalID   `firestore:"OwnerID"`
	Contributors []types.PrincipalID `firestore:"Contributors,omitempty"`
	CreatedAt    time.Time           `firestore:"CreatedAt"`
	UpdatedAt    time.Time           `firestore:"UpdatedAt"`
}

func toProjectDoc(p *model.Project) *projectDoc {
	return &projectDoc{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		OwnerID:      p.OwnerID,
		Contributors: p.Contributors,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func fromProjectDoc(d *projectDoc) *model.Project {
	return &model.Project{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		OwnerID:      d.OwnerID,
		Contributors: d.Contributors,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type projectRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newProjectRepository(client *firestore.Client) *projectRepository {
	return &projectRepository{
		client: client,
	}
}

func (r *projectRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + "projects")
}

func (r *projectRepository) Get(ctx context.Context, id types.ProjectID) (*model.Project, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrNotFound, "project not found", goerr.V(types.ProjectIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get project", goerr.V(types.ProjectIDKey, id))
	}

	var d projectDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal project", goerr.V(types.ProjectIDKey, id))
	}

	return fromProjectDoc(&d), nil
}

func (r *projectRepository) Put(ctx context.Context, project *model.Project) error {
	if err := project.Validate(); err != nil {
		return goerr.Wrap(err, "invalid project")
	}

	stored := *project
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = time.Now().UTC()

	if _, err := r.collection().Doc(stored.ID.String()).Set(ctx, toProjectDoc(&stored)); err != nil {
		return goerr.Wrap(err, "failed to put project", goerr.V(types.ProjectIDKey, stored.ID))
	}

	return nil
}
