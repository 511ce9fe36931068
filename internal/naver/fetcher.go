// Package naver talks to the news search API and collects deduplicated candidates.
package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/newscurator/internal/dedup"
	"github.com/deusflow/newscurator/internal/metrics"
	"github.com/deusflow/newscurator/internal/news"
)

// Waiter gates outbound calls.
type Waiter interface {
	Wait(ctx context.Context) error
}

// UpstreamError is a failed search call for one keyword.
type UpstreamError struct {
	Keyword    string
	StatusCode int
	Message    string
	Cause      error
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("search %q: %s", e.Keyword, e.Message)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *UpstreamError) Unwrap() error { return e.Cause }

// Config holds the fetcher settings.
type Config struct {
	ClientID             string
	ClientSecret         string
	BaseURL              string
	Display              int
	Sort                 string
	CanonicalHost        string
	TitleThreshold       float64
	DescriptionThreshold float64
	MaxPerKeyword        int
	Timeout              time.Duration
}

// Fetcher issues one search per keyword and returns canonical, deduplicated items.
type Fetcher struct {
	cfg       Config
	client    *http.Client
	limiter   Waiter
	extractor dedup.Extractor
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithMetrics sets the metrics sink. Defaults to metrics.Global.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

func NewFetcher(cfg Config, limiter Waiter, extractor dedup.Extractor, logger *slog.Logger, opts ...Option) *Fetcher {
	if cfg.MaxPerKeyword <= 0 {
		cfg.MaxPerKeyword = 12
	}
	if cfg.Sort == "" {
		cfg.Sort = "sim"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		cfg:       cfg,
		client:    &http.Client{Timeout: cfg.Timeout},
		limiter:   limiter,
		extractor: extractor,
		logger:    logger,
		metrics:   metrics.Global,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type searchResponse struct {
	Items []news.RawItem `json:"items"`
}

// Fetch runs one search for keyword. The upstream call is made at most once.
func (f *Fetcher) Fetch(ctx context.Context, keyword string) ([]news.RawItem, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := f.search(ctx, keyword)
	if err != nil {
		return nil, err
	}

	items := make([]news.RawItem, 0, len(raw))
	for _, it := range raw {
		it.Title = cleanText(it.Title)
		it.Description = cleanText(it.Description)
		it.Link = strings.TrimSpace(it.Link)
		it.OriginalLink = strings.TrimSpace(it.OriginalLink)
		it.PublishedAt = strings.TrimSpace(it.PublishedAt)
		if !it.Complete() || !f.isCanonical(it.Link) {
			continue
		}
		items = append(items, it)
	}

	byTitle := dedup.Dedupe(items, func(it news.RawItem) string { return it.Title }, f.cfg.TitleThreshold, f.extractor)
	byDesc := dedup.Dedupe(byTitle.Kept, func(it news.RawItem) string { return it.Description }, f.cfg.DescriptionThreshold, f.extractor)
	f.metrics.AddDuplicatesRemoved(byTitle.Removed + byDesc.Removed)
	f.metrics.AddDegradedKeywords(byTitle.Degraded + byDesc.Degraded)

	out := byDesc.Kept
	if len(out) > f.cfg.MaxPerKeyword {
		out = out[:f.cfg.MaxPerKeyword]
	}

	f.logger.Debug("keyword fetched", "keyword", keyword,
		"received", len(raw), "canonical", len(items), "kept", len(out))
	return out, nil
}

func (f *Fetcher) search(ctx context.Context, keyword string) ([]news.RawItem, error) {
	endpoint := f.cfg.BaseURL + url.QueryEscape(keyword) +
		"&display=" + strconv.Itoa(f.cfg.Display) + "&sort=" + f.cfg.Sort

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &UpstreamError{Keyword: keyword, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("X-Naver-Client-Id", f.cfg.ClientID)
	req.Header.Set("X-Naver-Client-Secret", f.cfg.ClientSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &UpstreamError{Keyword: keyword, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{
			Keyword:    keyword,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &UpstreamError{Keyword: keyword, StatusCode: resp.StatusCode, Message: "malformed response", Cause: err}
	}
	return payload.Items, nil
}

func (f *Fetcher) isCanonical(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Hostname(), f.cfg.CanonicalHost)
}

// cleanText strips markup like <b> and decodes HTML entities.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
