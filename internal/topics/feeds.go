package topics

import (
	"context"
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/deusflow/newscurator/internal/keyword"
)

// HeadlineFetcher returns headline titles for a set of feed URLs.
type HeadlineFetcher interface {
	FetchHeadlines(ctx context.Context, urls []string) ([]string, error)
}

// FeedGenerator picks the most frequent terms across feed headlines.
type FeedGenerator struct {
	fetcher   HeadlineFetcher
	feeds     []string
	extractor *keyword.Extractor
	limit     int
}

func NewFeedGenerator(fetcher HeadlineFetcher, feeds []string, extractor *keyword.Extractor, limit int) *FeedGenerator {
	if extractor == nil {
		extractor = keyword.NewExtractor(nil)
	}
	if limit <= 0 {
		limit = 10
	}
	return &FeedGenerator{fetcher: fetcher, feeds: feeds, extractor: extractor, limit: limit}
}

func (g *FeedGenerator) Generate(ctx context.Context) ([]string, error) {
	headlines, err := g.fetcher.FetchHeadlines(ctx, g.feeds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch headlines: %w", err)
	}
	return TopTerms(g.extractor, headlines, g.limit), nil
}

// TopTerms counts in how many headlines each term appears and returns the
// limit most common. Single-rune terms are ignored. Ties keep first-seen order.
func TopTerms(ex *keyword.Extractor, headlines []string, limit int) []string {
	counts := make(map[string]int)
	var order []string
	for _, h := range headlines {
		for _, term := range ex.Extract(h).Terms {
			if utf8.RuneCountInString(term) < 2 {
				continue
			}
			if counts[term] == 0 {
				order = append(order, term)
			}
			counts[term]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}
