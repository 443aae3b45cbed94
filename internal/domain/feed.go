package domain

import "time"

// Source is one configured feed endpoint to poll. The feed URL is the
// stable identity; LastFetched is the watermark advanced after each
// successful pass.
type Source struct {
	ID          int64      `db:"id"`
	FeedURL     string     `db:"feed_url"`
	Name        string     `db:"name"`
	Enabled     bool       `db:"enabled"`
	LastFetched *time.Time `db:"last_fetched"`
	CreatedAt   time.Time  `db:"created_at"`
}

// RawItem is a normalized feed entry produced by the fetcher. It is
// transient: only items classified relevant are promoted to StoredItem.
type RawItem struct {
	URL           string
	Title         string
	Content       string
	Summary       string
	PublishedDate time.Time
	SourceID      int64
}

// StoredItem is the persistent form of a relevant item, keyed by URL.
type StoredItem struct {
	URL                string
	Title              string
	Content            string
	Summary            string
	PublishedDate      time.Time
	SourceID           int64
	IsRelevant         bool
	RelevanceReasoning string
	ProcessedAt        time.Time
}

// Verdict is the classifier's judgement for a single item.
type Verdict struct {
	IsRelevant bool   `json:"is_relevant"`
	Reasoning  string `json:"reasoning"`
}

// BatchResult is the typed outcome of one classifier call: either one
// verdict per submitted item, in submission order, or a failure reason
// covering the whole batch.
type BatchResult struct {
	Verdicts      []Verdict
	FailureReason string
}

// Failed reports whether the external call failed for the whole batch.
func (r BatchResult) Failed() bool {
	return r.FailureReason != ""
}

// FailureVerdicts expands a failed batch into one not-relevant verdict
// per submitted item, recording the failure cause. Unverified items must
// never pass the filter.
func (r BatchResult) FailureVerdicts(n int) []Verdict {
	verdicts := make([]Verdict, n)
	for i := range verdicts {
		verdicts[i] = Verdict{IsRelevant: false, Reasoning: "filter error: " + r.FailureReason}
	}
	return verdicts
}
