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

// contextDoc is the Firestore document representation of model.ContextRecord.
// Embedding is stored as firestore.Vector32 so a vector index can be attached
// to the field later without a data migration.
type contextDoc struct {
	ID          types.RecordID     `firestore:"ID"`
	ProjectID   types.ProjectID    `firestore:"ProjectID"`
	Content     string             `firestore:"Content"`
	Embedding   firestore.Vector32 `firestore:"Embedding,omitempty"`
	CreatedBy   types.PrincipalID  `firestore:"CreatedBy"`
	Source      string             `firestore:"Source,omitempty"`
	Tags        []string           `firestore:"Tags,omitempty"`
	Extra       map[string]string  `firestore:"Extra,omitempty"`
	CreatedAt   time.Time          `firestore:"CreatedAt"`
	AccessCount int64              `firestore:"AccessCount"`
}

func toContextDoc(r *model.ContextRecord) *contextDoc {
	doc := &contextDoc{
		ID:          r.ID,
		ProjectID:   r.ProjectID,
		Content:     r.Content,
		CreatedBy:   r.CreatedBy,
		Source:      r.Metadata.Source,
		Tags:        r.Metadata.Tags,
		Extra:       r.Metadata.Extra,
		CreatedAt:   r.CreatedAt,
		AccessCount: r.AccessCount,
	}
	if len(r.Embedding) > 0 {
		doc.Embedding = firestore.Vector32(r.Embedding)
	}
	return doc
}

func fromContextDoc(d *contextDoc) *model.ContextRecord {
	r := &model.ContextRecord{
		ID:        d.ID,
		ProjectID: d.ProjectID,
		Content:   d.Content,
		CreatedBy: d.CreatedBy,
		Metadata: model.Metadata{
			Source: d.Source,
			Tags:   d.Tags,
			Extra:  d.Extra,
		},
		CreatedAt:   d.CreatedAt,
		AccessCount: d.AccessCount,
	}
	if len(d.Embedding) > 0 {
		r.Embedding = []float32(d.Embedding)
	}
	return r
}

func docToRecord(doc *firestore.DocumentSnapshot) (*model.ContextRecord, error) {
	var d contextDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return fromContextDoc(&d), nil
}

type contextRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newContextRepository(client *firestore.Client) *contextRepository {
	return &contextRepository{
		client: client,
	}
}

func (r *contextRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(r.collectionPrefix + "contexts")
}

func (r *contextRepository) Insert(ctx context.Context, records []*model.ContextRecord) ([]*model.ContextRecord, error) {
	now := time.Now().UTC()

	inserted := make([]*model.ContextRecord, 0, len(records))
	bw := r.client.BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(records))
	for _, record := range records {
		stored := *record
		if stored.ID == "" {
			stored.ID = types.NewRecordID()
		}
		stored.CreatedAt = now
		stored.AccessCount = 0

		if err := stored.Validate(); err != nil {
			bw.End()
			return nil, goerr.Wrap(err, "invalid context record")
		}

		job, err := bw.Create(r.collection().Doc(stored.ID.String()), toContextDoc(&stored))
		if err != nil {
			bw.End()
			return nil, goerr.Wrap(err, "failed to enqueue context record",
				goerr.V(types.RecordIDKey, stored.ID))
		}
		jobs = append(jobs, job)
		inserted = append(inserted, &stored)
	}

	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return nil, goerr.Wrap(err, "failed to insert context record",
				goerr.V(types.RecordIDKey, inserted[i].ID))
		}
	}

	return inserted, nil
}

func (r *contextRepository) Get(ctx context.Context, id types.RecordID) (*model.ContextRecord, error) {
	doc, err := r.collection().Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrNotFound, "context record not found", goerr.V(types.RecordIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get context record", goerr.V(types.RecordIDKey, id))
	}

	record, err := docToRecord(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal context record", goerr.V(types.RecordIDKey, id))
	}

	return record, nil
}

func (r *contextRepository) ListByProject(ctx context.Context, projectID types.ProjectID) ([]*model.ContextRecord, error) {
	iter := r.collection().
		Where("ProjectID", "==", projectID.String()).
		OrderBy("CreatedAt", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	records := make([]*model.ContextRecord, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate context records",
				goerr.V(types.ProjectIDKey, projectID))
		}

		record, err := docToRecord(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal context record")
		}

		records = append(records, record)
	}

	return records, nil
}

func (r *contextRepository) IncrementAccessCount(ctx context.Context, id types.RecordID) error {
	_, err := r.collection().Doc(id.String()).Update(ctx, []firestore.Update{
		{Path: "AccessCount", Value: firestore.Increment(1)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(types.ErrNotFound, "context record not found", goerr.V(types.RecordIDKey, id))
		}
		return goerr.Wrap(err, "failed to increment access count", goerr.V(types.RecordIDKey, id))
	}

	return nil
}
