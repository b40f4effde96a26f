package ports

import (
	"context"

	"SignalScanner/internal/domain"
)

// SignalSource aggregates fresh signals from the enabled upstream
// providers. It never fails: sources that break contribute nothing.
type SignalSource interface {
	Aggregate(ctx context.Context, cfg domain.SourceConfig) []domain.RawSignal
}

// SignalRepository is the durable signal ledger used for cross-run
// deduplication and deferred publishing.
type SignalRepository interface {
	// SaveBatch writes each signal as a new record, best effort per
	// item. It returns the saved count and any per-item error strings.
	SaveBatch(ctx context.Context, signals []domain.ScoredSignal, status domain.SignalStatus) (int, []string)
	// ListPending returns status=new records, top-scored first.
	ListPending(ctx context.Context, limit int) ([]domain.ScoredSignal, error)
	// MarkPublished transitions the given records to status=published
	// and stamps their content-store back-references.
	MarkPublished(ctx context.Context, refs map[string]domain.PublishRef) error
	// ExistsByURL reports whether any record with the canonical URL
	// exists, regardless of status.
	ExistsByURL(ctx context.Context, canonicalURL string) (bool, error)
}

// ContentStore creates title and entry records in the shared content
// backend.
type ContentStore interface {
	CreateTitle(ctx context.Context, fields domain.ArticleFields) (string, error)
	CreateEntry(ctx context.Context, fields domain.EntryFields) (string, error)
}

// IdentityProvider provisions and assumes the automated-content author.
type IdentityProvider interface {
	// InitializeAutomatedIdentity is idempotent: it returns the
	// existing identity if one is already provisioned.
	InitializeAutomatedIdentity(ctx context.Context) (domain.Identity, error)
	SignInAs(ctx context.Context, identity domain.Identity) error
}

// StatusStore persists the scheduler's run history across restarts.
type StatusStore interface {
	Load(ctx context.Context) (domain.ScheduleStatus, error)
	Save(ctx context.Context, status domain.ScheduleStatus) error
}

// ChatClient generates synthetic topics and supplementary entry bodies
// via a language-model API.
type ChatClient interface {
	GenerateTopics(ctx context.Context, n int) ([]domain.Topic, error)
	GenerateSupplementary(ctx context.Context, topic domain.Topic) ([]string, error)
}
