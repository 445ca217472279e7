package interfaces

import "context"

// UsageSink receives one usage observation per successful authentication.
// Implementations are best-effort: callers dispatch asynchronously and a
// sink failure must never fail the primary operation.
type UsageSink interface {
	RecordUsage(ctx context.Context, email string) error
}
