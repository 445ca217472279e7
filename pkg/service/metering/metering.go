package metering

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/teamctx-lab/teamctx/pkg/domain/interfaces"
)

// usageEvent is the record mirrored to the analytics landing bucket,
// keyed by principal email.
type usageEvent struct {
	Email      string    `json:"email"`
	ObservedAt time.Time `json:"observed_at"`
}

// GCSSink appends one JSON object per usage observation to a Cloud Storage
// bucket that an external warehouse loads from. It is best-effort by
// contract: callers dispatch it fire-and-forget.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ interfaces.UsageSink = &GCSSink{}

// NewGCSSink creates a sink writing to the given bucket
func NewGCSSink(ctx context.Context, bucket string) (*GCSSink, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &GCSSink{
		client: client,
		bucket: bucket,
		prefix: "usage",
	}, nil
}

// RecordUsage writes one usage event object. Object keys are date-sharded
// so warehouse loads can pick up a day at a time.
func (s *GCSSink) RecordUsage(ctx context.Context, email string) error {
	event := usageEvent{
		Email:      email,
		ObservedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal usage event")
	}

	key := fmt.Sprintf("%s/%s/%s.json", s.prefix, event.ObservedAt.Format("2006/01/02"), uuid.New().String())
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write usage event", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize usage event", goerr.V("key", key))
	}

	return nil
}

// Close releases the underlying storage client
func (s *GCSSink) Close() error {
	return s.client.Close()
}

// Discard is a no-op sink used when metering is not configured
type Discard struct{}

var _ interfaces.UsageSink = Discard{}

// RecordUsage does nothing
func (Discard) RecordUsage(ctx context.Context, email string) error {
	return nil
}
