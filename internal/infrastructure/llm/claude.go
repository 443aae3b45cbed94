package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"FeedCurator/internal/config"
	"FeedCurator/internal/domain"
	"FeedCurator/internal/ports"
)

const excerptBytes = 500

// Classifier implements ports.Classifier against an Anthropic-compatible
// messages API. One call covers an ordered batch of items; the response
// must be a JSON array with exactly one verdict per item.
type Classifier struct {
	endpoint   string
	model      string
	apiKey     string
	apiVersion string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// NewClassifier builds a client from configuration.
func NewClassifier(cfg config.ClassifierConfig, logger *slog.Logger) *Classifier {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Classifier{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		maxTokens:  cfg.MaxTokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ClassifyBatch submits the batch and returns a typed outcome. Any call,
// parse, or length failure covers the whole batch; the caller defaults
// those items to not relevant.
func (c *Classifier) ClassifyBatch(ctx context.Context, batch []domain.RawItem) domain.BatchResult {
	if len(batch) == 0 {
		return domain.BatchResult{}
	}

	verdicts, err := c.requestVerdicts(ctx, batch)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("classifier batch failed", "items", len(batch), "error", err)
		}
		return domain.BatchResult{FailureReason: err.Error()}
	}

	return domain.BatchResult{Verdicts: verdicts}
}

func (c *Classifier) requestVerdicts(ctx context.Context, batch []domain.RawItem) ([]domain.Verdict, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return nil, fmt.Errorf("classifier misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"max_tokens": c.maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": buildPrompt(batch)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call classifier: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("classifier error %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	var payload struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(payload.Content) == 0 {
		return nil, fmt.Errorf("empty response content")
	}

	return parseVerdicts(payload.Content[0].Text, len(batch))
}

// parseVerdicts extracts the ordered verdict array, tolerating markdown
// code fences around the JSON.
func parseVerdicts(text string, want int) ([]domain.Verdict, error) {
	var verdicts []domain.Verdict
	if err := json.Unmarshal([]byte(stripFences(text)), &verdicts); err != nil {
		return nil, fmt.Errorf("parse verdicts: %w", err)
	}
	if len(verdicts) != want {
		return nil, fmt.Errorf("expected %d verdicts, got %d", want, len(verdicts))
	}
	return verdicts, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	if i := strings.LastIndex(text, "```"); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

func buildPrompt(batch []domain.RawItem) string {
	var items strings.Builder
	for i, item := range batch {
		excerpt := item.Content
		if excerpt == "" {
			excerpt = item.Summary
		}
		if len(excerpt) > excerptBytes {
			cut := excerptBytes
			for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
				cut--
			}
			excerpt = excerpt[:cut]
		}

		fmt.Fprintf(&items, "\n## Item %d\n", i+1)
		fmt.Fprintf(&items, "Title: %s\n", item.Title)
		fmt.Fprintf(&items, "Content: %s\n", excerpt)
	}

	return fmt.Sprintf(`You are filtering RSS feed items for a Security Operations Center (SOC) analyst.

Evaluate each item below and determine if it is directly relevant to information security / cybersecurity.

INCLUDE items about:
- Vulnerabilities, exploits, CVEs
- Data breaches, incidents, threat actors
- Security tools, techniques, defensive measures
- Malware, ransomware, attack campaigns
- Security research and analysis

EXCLUDE items about:
- Marketing content (product launches, webinars, ebooks)
- General business/tech news not related to security
- Opinion pieces without technical substance
- Job postings, company announcements
- Conference advertisements
%s

Respond with a JSON array where each element corresponds to an item (in order) with this structure:
{
  "is_relevant": true/false,
  "reasoning": "brief explanation"
}

Only return the JSON array, nothing else.`, items.String())
}
