package feed

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"FeedCurator/internal/domain"
	"FeedCurator/internal/ports"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "FeedCurator/1.0"

	maxTitleBytes   = 1000
	maxContentBytes = 10000
	maxSummaryBytes = 2000
)

// Fetcher retrieves RSS/Atom documents and normalizes their entries.
// Fetch failures never surface as errors: a broken source yields an
// empty slice and a warning attributed to that source.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

var _ ports.FeedFetcher = (*Fetcher)(nil)

// NewFetcher wires an HTTP client; timeout defaults to 30s.
func NewFetcher(client *http.Client, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{client: client, timeout: timeout, logger: logger}
}

// FetchAll retrieves every source in parallel and returns one item slice
// per source, in source order. One slow or failing source never blocks
// or aborts the others.
func (f *Fetcher) FetchAll(ctx context.Context, sources []domain.Source, maxItems int) [][]domain.RawItem {
	results := make([][]domain.RawItem, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(slot int, src domain.Source) {
			defer wg.Done()
			results[slot] = f.Fetch(ctx, src, maxItems)
		}(i, src)
	}
	wg.Wait()

	return results
}

// Fetch retrieves and parses a single source within the configured time
// budget, returning at most maxItems normalized entries in document order.
func (f *Fetcher) Fetch(ctx context.Context, source domain.Source, maxItems int) []domain.RawItem {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = f.client
	parser.UserAgent = userAgent

	parsed, err := parser.ParseURLWithContext(source.FeedURL, ctx)
	if err != nil {
		f.warn("fetch feed failed", "source", source.Name, "url", source.FeedURL, "error", err)
		return []domain.RawItem{}
	}

	items := make([]domain.RawItem, 0, min(len(parsed.Items), maxItems))
	for _, entry := range parsed.Items {
		if len(items) >= maxItems {
			break
		}

		link := strings.TrimSpace(entry.Link)
		if link == "" {
			// URL is the only enforced identity key.
			continue
		}

		items = append(items, domain.RawItem{
			URL:           link,
			Title:         truncateBytes(strings.TrimSpace(entry.Title), maxTitleBytes),
			Content:       truncateBytes(extractContent(entry), maxContentBytes),
			Summary:       truncateBytes(stripHTML(entry.Description), maxSummaryBytes),
			PublishedDate: resolvePublished(entry),
			SourceID:      source.ID,
		})
	}

	f.debug("fetched feed", "source", source.Name, "items", len(items))
	return items
}

// extractContent resolves the entry body by fixed precedence: explicit
// content field, then description.
func extractContent(entry *gofeed.Item) string {
	if entry.Content != "" {
		return stripHTML(entry.Content)
	}
	return stripHTML(entry.Description)
}

// resolvePublished falls back from published to updated to now; all UTC.
func resolvePublished(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed.UTC()
	}
	if entry.UpdatedParsed != nil {
		return entry.UpdatedParsed.UTC()
	}
	return time.Now().UTC()
}

// stripHTML reduces an HTML fragment to its text content so truncation
// budgets apply to prose, not markup.
func stripHTML(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" || !strings.ContainsRune(fragment, '<') {
		return fragment
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// truncateBytes caps s at limit bytes without splitting a rune.
func truncateBytes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (f *Fetcher) warn(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Warn(msg, args...)
	}
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
