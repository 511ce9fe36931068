// Package rss reads headline feeds used to seed search keywords.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// FeedsConfig is YAML config structure
// feeds:
//   - https://...
type FeedsConfig struct {
	Feeds []string `yaml:"feeds"`
}

// LoadFeeds reads RSS feeds list from YAML file
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feeds config: %w", err)
	}
	defer f.Close()

	var cfg FeedsConfig
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode feeds config: %w", err)
	}
	return cfg.Feeds, nil
}

// Fetcher downloads feeds one by one.
type Fetcher struct {
	parser  *gofeed.Parser
	timeout time.Duration
	logger  *slog.Logger
}

func NewFetcher(timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{parser: gofeed.NewParser(), timeout: timeout, logger: logger}
}

// FetchHeadlines returns the item titles of every feed that parses.
// A failing feed is logged and skipped; only all feeds failing is an error.
func (f *Fetcher) FetchHeadlines(ctx context.Context, urls []string) ([]string, error) {
	var headlines []string
	successCount := 0

	for _, url := range urls {
		if err := ctx.Err(); err != nil {
			return headlines, err
		}

		feedCtx, cancel := context.WithTimeout(ctx, f.timeout)
		feed, err := f.parser.ParseURLWithContext(url, feedCtx)
		cancel()
		if err != nil {
			f.logger.Warn("error parsing RSS", "url", url, "error", err)
			continue
		}

		for _, item := range feed.Items {
			if title := strings.TrimSpace(item.Title); title != "" {
				headlines = append(headlines, title)
			}
		}
		successCount++
		f.logger.Debug("loaded feed", "url", url, "items", len(feed.Items))
	}

	f.logger.Info("processed RSS feeds", "ok", successCount, "total", len(urls))
	if successCount == 0 && len(urls) > 0 {
		return nil, fmt.Errorf("all %d feeds failed", len(urls))
	}
	return headlines, nil
}
