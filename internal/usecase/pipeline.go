package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"FeedCurator/internal/domain"
	"FeedCurator/internal/ports"
)

const (
	defaultBatchSize       = 10
	defaultMaxItemsPerFeed = 50
)

// PipelineDeps wires all driven adapters into the run coordinator.
type PipelineDeps struct {
	Registry        ports.SourceRegistry
	Store           ports.ItemStore
	Fetcher         ports.FeedFetcher
	Classifier      ports.Classifier
	Pacer           *Pacer
	BatchSize       int
	MaxItemsPerFeed int
	Logger          *slog.Logger
}

// Pipeline drives one end-to-end run: parallel fetch, sequential
// batch classification with pacing, per-source persistence, and a run
// record that always reaches a terminal state.
type Pipeline struct {
	registry   ports.SourceRegistry
	store      ports.ItemStore
	fetcher    ports.FeedFetcher
	classifier ports.Classifier
	pacer      *Pacer
	batchSize  int
	maxItems   int
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxItems := deps.MaxItemsPerFeed
	if maxItems <= 0 {
		maxItems = defaultMaxItemsPerFeed
	}
	pacer := deps.Pacer
	if pacer == nil {
		pacer = NewPacer(0)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		registry:   deps.Registry,
		store:      deps.Store,
		fetcher:    deps.Fetcher,
		classifier: deps.Classifier,
		pacer:      pacer,
		batchSize:  batchSize,
		maxItems:   maxItems,
		logger:     logger,
	}
}

// ProcessRun executes one run for the calendar date of now. The run
// record is committed as running before any work starts and transitions
// to success or failed exactly once, even when the body errors; the
// error is still returned to the caller. Per-source failures are
// absorbed and never abort the run.
func (p *Pipeline) ProcessRun(ctx context.Context, now time.Time, opts domain.RunOptions) (err error) {
	rec := &domain.RunRecord{
		RunDate:   domain.RunDay(now),
		Status:    domain.RunRunning,
		StartedAt: now.UTC(),
	}
	if uErr := p.store.UpsertRunRecord(ctx, rec); uErr != nil {
		return fmt.Errorf("create run record: %w", uErr)
	}

	p.logger.Info("run started", "date", rec.RunDate.Format("2006-01-02"))

	defer func() {
		completed := time.Now().UTC()
		rec.CompletedAt = &completed
		if err != nil {
			rec.Status = domain.RunFailed
			rec.ErrorMessage = err.Error()
		} else {
			rec.Status = domain.RunSuccess
		}

		if uErr := p.store.UpsertRunRecord(ctx, rec); uErr != nil {
			p.logger.Error("finalize run record", "error", uErr)
			if err == nil {
				err = fmt.Errorf("finalize run record: %w", uErr)
			}
			return
		}

		p.logger.Info("run finished",
			"status", rec.Status,
			"feeds", rec.FeedsProcessed,
			"fetched", rec.ItemsFetched,
			"relevant", rec.ItemsRelevant,
			"api_calls", rec.APICallsMade)
	}()

	sources, lErr := p.registry.ListEnabledSources(ctx)
	if lErr != nil {
		return fmt.Errorf("list sources: %w", lErr)
	}

	if opts.MaxFeeds > 0 && len(sources) > opts.MaxFeeds {
		sources = sources[:opts.MaxFeeds]
	}
	maxItems := p.maxItems
	if opts.MaxItemsPerFeed > 0 {
		maxItems = opts.MaxItemsPerFeed
	}

	fetched := p.fetcher.FetchAll(ctx, sources, maxItems)

	for i, source := range sources {
		items := fetched[i]
		rec.FeedsProcessed++
		rec.ItemsFetched += len(items)

		relevant, calls := p.classifySource(ctx, source, items)
		rec.APICallsMade += calls
		rec.ItemsRelevant += len(relevant)

		inserted, sErr := p.store.SaveSourceItems(ctx, source, relevant, time.Now().UTC())
		if sErr != nil {
			p.logger.Error("persist source items", "source", source.Name, "error", sErr)
			continue
		}

		p.logger.Info("source processed",
			"source", source.Name,
			"fetched", len(items),
			"relevant", len(relevant),
			"inserted", inserted)
	}

	return nil
}

// classifySource walks a source's items in fixed-size batches, pacing
// each dispatch, and collects relevant items in feed-document order.
// A failed batch defaults every item in it to not relevant.
func (p *Pipeline) classifySource(ctx context.Context, source domain.Source, items []domain.RawItem) ([]domain.StoredItem, int) {
	var relevant []domain.StoredItem
	calls := 0

	for start := 0; start < len(items); start += p.batchSize {
		end := min(start+p.batchSize, len(items))
		batch := items[start:end]

		if wErr := p.pacer.Wait(ctx); wErr != nil {
			p.logger.Warn("pacing interrupted", "source", source.Name, "error", wErr)
			return relevant, calls
		}

		result := p.classifier.ClassifyBatch(ctx, batch)
		calls++

		verdicts := result.Verdicts
		if result.Failed() {
			p.logger.Error("classifier batch failed",
				"source", source.Name,
				"from", start,
				"to", end,
				"reason", result.FailureReason)
			verdicts = result.FailureVerdicts(len(batch))
		}

		for j, verdict := range verdicts {
			if !verdict.IsRelevant {
				continue
			}
			item := batch[j]
			relevant = append(relevant, domain.StoredItem{
				URL:                item.URL,
				Title:              item.Title,
				Content:            item.Content,
				Summary:            item.Summary,
				PublishedDate:      item.PublishedDate,
				SourceID:           item.SourceID,
				IsRelevant:         true,
				RelevanceReasoning: verdict.Reasoning,
				ProcessedAt:        time.Now().UTC(),
			})
		}
	}

	return relevant, calls
}
