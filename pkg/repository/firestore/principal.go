package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/model"
	"github.com/teamctx-lab/teamctx/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type principalDoc struct {
	ID             types.PrincipalID `firestore:"ID"`
	Email          string            `firestore:"Email"`
	Name           string            `firestore:"Name,omitempty"`
	HashedPassword string            `firestore:"HashedPassword,omitempty"`
	HashedAPIKey   string            `firestore:"HashedAPIKey,omitempty"`
	APIKeyID       types.APIKeyID    `firestore:"APIKeyID,omitempty"`
	CreatedAt      time.Time         `firestore:"CreatedAt"`
	UpdatedAt      time.Time         `firestore:"UpdatedAt"`
}

func toPrincipalDoc(p *model.Principal) *principalDoc {
	return &principalDoc{
		ID:             p.ID,
		Email:          p.Email,
		Name:           p.Name,
		HashedPassword: p.HashedPassword,
		HashedAPIKey:   p.HashedAPIKey,
		APIKeyID:       p.APIKeyID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func fromPrincipalDoc(d *principalDoc) *model.Principal {
	return &model.Principal{
		ID:             d.ID,
		Email:          d.Email,
		Name:           d.Name,
		HashedPassword: d.HashedPassword,
		HashedAPIKey:   d.HashedAPIKey,
		APIKeyID:       d.APIKeyID,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type principalRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newPrincipalRepository(client *firestore.Client) *principalRepository {
	return &principalRepository{
		client: client,
	}
}

func (r *principalRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + "principals")
}

func (r *principalRepository) Get(ctx context.Context, id types.PrincipalID) (*model.Principal, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrNotFound, "principal not found", goerr.V(types.PrincipalIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get principal", goerr.V(types.PrincipalIDKey, id))
	}

	var d principalDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal principal", goerr.V(types.PrincipalIDKey, id))
	}

	return fromPrincipalDoc(&d), nil
}

func (r *principalRepository) getByField(ctx context.Context, field string, value any) (*model.Principal, error) {
	iter := r.collection().
		Where(field, "==", value).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(types.ErrNotFound, "principal not found", goerr.V(field, value))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query principal", goerr.V(field, value))
	}

	var d principalDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal principal", goerr.V(field, value))
	}

	return fromPrincipalDoc(&d), nil
}

func (r *principalRepository) GetByEmail(ctx context.Context, email string) (*model.Principal, error) {
	return r.getByField(ctx, "Email", email)
}

func (r *principalRepository) GetByAPIKeyID(ctx context.Context, keyID types.APIKeyID) (*model.Principal, error) {
	return r.getByField(ctx, "APIKeyID", keyID.String())
}

func (r *principalRepository) Put(ctx context.Context, principal *model.Principal) error {
	if err := principal.Validate(); err != nil {
		return goerr.Wrap(err, "invalid principal")
	}

	stored := *principal
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.UpdatedAt = time.Now().UTC()

	if _, err := r.collection().Doc(stored.ID.String()).Set(ctx, toPrincipalDoc(&stored)); err != nil {
		return goerr.Wrap(err, "failed to put principal", goerr.V(types.PrincipalIDKey, stored.ID))
	}

	return nil
}
