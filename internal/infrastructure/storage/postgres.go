package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"FeedCurator/internal/domain"
	"FeedCurator/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS feed_sources (
    id           BIGSERIAL PRIMARY KEY,
    feed_url     TEXT NOT NULL UNIQUE,
    name         TEXT NOT NULL,
    enabled      BOOLEAN NOT NULL DEFAULT TRUE,
    last_fetched TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS feed_items (
    id                  BIGSERIAL PRIMARY KEY,
    url                 TEXT NOT NULL UNIQUE,
    title               TEXT NOT NULL,
    content             TEXT,
    summary             TEXT,
    published_date      TIMESTAMPTZ,
    source_id           BIGINT REFERENCES feed_sources (id),
    is_relevant         BOOLEAN,
    relevance_reasoning TEXT,
    processed_at        TIMESTAMPTZ,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_feed_items_published ON feed_items (published_date);

CREATE TABLE IF NOT EXISTS processing_runs (
    id              BIGSERIAL PRIMARY KEY,
    run_date        DATE NOT NULL UNIQUE,
    status          TEXT NOT NULL,
    feeds_processed INTEGER NOT NULL DEFAULT 0,
    items_fetched   INTEGER NOT NULL DEFAULT 0,
    items_relevant  INTEGER NOT NULL DEFAULT 0,
    api_calls_made  INTEGER NOT NULL DEFAULT 0,
    started_at      TIMESTAMPTZ,
    completed_at    TIMESTAMPTZ,
    error_message   TEXT
);`

// Postgres implements the source registry and the dedup/persistence
// gateway. All item mutation happens here, one transaction per source.
type Postgres struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

var _ ports.SourceRegistry = (*Postgres)(nil)
var _ ports.ItemStore = (*Postgres)(nil)

// Open connects to Postgres and tunes the pool.
func Open(dsn string, logger *slog.Logger) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  logger,
	}, nil
}

// Init creates the schema when absent.
func (p *Postgres) Init(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	if p.logger != nil {
		p.logger.Debug("schema ready")
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

// ListEnabledSources returns all enabled sources in registration order.
func (p *Postgres) ListEnabledSources(ctx context.Context) ([]domain.Source, error) {
	query, args, err := p.builder.
		Select("id", "feed_url", "name", "enabled", "last_fetched", "created_at").
		From("feed_sources").
		Where(sq.Eq{"enabled": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sources query: %w", err)
	}

	var sources []domain.Source
	if err := p.db.SelectContext(ctx, &sources, query, args...); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}

	return sources, nil
}

// SaveSourceItems commits one source's relevant items atomically: skip
// URLs that already exist, insert the rest, advance the watermark. A
// duplicate URL is an expected no-op, never an error.
func (p *Postgres) SaveSourceItems(ctx context.Context, source domain.Source, items []domain.StoredItem, fetchedAt time.Time) (int, error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := p.existingURLs(ctx, tx, items)
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, item := range items {
		if existing[item.URL] {
			continue
		}

		n, err := p.insertItem(ctx, tx, item)
		if err != nil {
			return 0, fmt.Errorf("insert item %s: %w", item.URL, err)
		}
		inserted += n
	}

	if err := p.markFetched(ctx, tx, source.ID, fetchedAt); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit source %s: %w", source.Name, err)
	}

	return inserted, nil
}

func (p *Postgres) existingURLs(ctx context.Context, tx *sqlx.Tx, items []domain.StoredItem) (map[string]bool, error) {
	if len(items) == 0 {
		return map[string]bool{}, nil
	}

	urls := make([]string, len(items))
	for i, item := range items {
		urls[i] = item.URL
	}

	query, args, err := p.builder.
		Select("url").
		From("feed_items").
		Where("url = ANY(?)", pq.StringArray(urls)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dedup query: %w", err)
	}

	var found []string
	if err := tx.SelectContext(ctx, &found, query, args...); err != nil {
		return nil, fmt.Errorf("check existing urls: %w", err)
	}

	existing := make(map[string]bool, len(found))
	for _, url := range found {
		existing[url] = true
	}
	return existing, nil
}

func (p *Postgres) insertItem(ctx context.Context, tx *sqlx.Tx, item domain.StoredItem) (int, error) {
	query, args, err := p.builder.
		Insert("feed_items").
		Columns("url", "title", "content", "summary", "published_date",
			"source_id", "is_relevant", "relevance_reasoning", "processed_at").
		Values(item.URL, item.Title, item.Content, item.Summary, item.PublishedDate,
			item.SourceID, item.IsRelevant, item.RelevanceReasoning, item.ProcessedAt).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (p *Postgres) markFetched(ctx context.Context, tx *sqlx.Tx, sourceID int64, fetchedAt time.Time) error {
	query, args, err := p.builder.
		Update("feed_sources").
		Set("last_fetched", fetchedAt).
		Where(sq.Eq{"id": sourceID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build watermark update: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	return nil
}

// UpsertRunRecord creates or replaces the run record for its date. A
// same-date rerun updates the existing row instead of violating the
// unique run_date constraint.
func (p *Postgres) UpsertRunRecord(ctx context.Context, rec *domain.RunRecord) error {
	query, args, err := p.builder.
		Insert("processing_runs").
		Columns("run_date", "status", "feeds_processed", "items_fetched",
			"items_relevant", "api_calls_made", "started_at", "completed_at", "error_message").
		Values(rec.RunDate, rec.Status, rec.FeedsProcessed, rec.ItemsFetched,
			rec.ItemsRelevant, rec.APICallsMade, rec.StartedAt, rec.CompletedAt, rec.ErrorMessage).
		Suffix(`ON CONFLICT (run_date) DO UPDATE SET
            status = EXCLUDED.status,
            feeds_processed = EXCLUDED.feeds_processed,
            items_fetched = EXCLUDED.items_fetched,
            items_relevant = EXCLUDED.items_relevant,
            api_calls_made = EXCLUDED.api_calls_made,
            started_at = EXCLUDED.started_at,
            completed_at = EXCLUDED.completed_at,
            error_message = EXCLUDED.error_message
            RETURNING id`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run upsert: %w", err)
	}

	if err := p.db.QueryRowxContext(ctx, query, args...).Scan(&rec.ID); err != nil {
		return fmt.Errorf("upsert run record: %w", err)
	}
	return nil
}
