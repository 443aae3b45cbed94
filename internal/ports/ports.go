package ports

import (
	"context"
	"time"

	"FeedCurator/internal/domain"
)

// SourceRegistry supplies the ordered set of enabled feed sources.
type SourceRegistry interface {
	ListEnabledSources(ctx context.Context) ([]domain.Source, error)
}

// ItemStore is the dedup and persistence gateway. SaveSourceItems runs
// one transaction per source: it skips items whose URL already exists,
// inserts the rest, and advances the source watermark to fetchedAt.
// It returns the number of newly inserted items.
type ItemStore interface {
	SaveSourceItems(ctx context.Context, source domain.Source, items []domain.StoredItem, fetchedAt time.Time) (int, error)
	UpsertRunRecord(ctx context.Context, rec *domain.RunRecord) error
}

// FeedFetcher retrieves and normalizes feed documents. FetchAll fetches
// every source concurrently and returns one item slice per source, in
// source order; a failing source yields an empty slice, never an error.
type FeedFetcher interface {
	FetchAll(ctx context.Context, sources []domain.Source, maxItems int) [][]domain.RawItem
}

// Classifier judges relevance for an ordered batch of items. The result
// either carries one verdict per item in submission order, or a failure
// reason covering the whole batch.
type Classifier interface {
	ClassifyBatch(ctx context.Context, batch []domain.RawItem) domain.BatchResult
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
