// Package topics produces the search keywords a run starts from.
package topics

import (
	"context"

	"github.com/deusflow/newscurator/internal/news"
)

// Generator produces search keywords for one run.
type Generator interface {
	Generate(ctx context.Context) ([]string, error)
}

// Keywords holds generated search keywords per category.
type Keywords map[news.Category][]string

// Flatten lists keywords in category display order.
func (k Keywords) Flatten() []string {
	var out []string
	for _, c := range news.Categories() {
		out = append(out, k[c]...)
	}
	return out
}

// DefaultKeywords is used when generation fails.
func DefaultKeywords() Keywords {
	return Keywords{
		news.Society:  {"사회", "교육"},
		news.Economy:  {"경제", "시장"},
		news.Politics: {"정치", "정부"},
		news.Culture:  {"문화", "예술"},
		news.IT:       {"기술", "IT"},
	}
}

// Static returns a fixed keyword list.
type Static []string

func (s Static) Generate(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// Merge appends static keywords to generated ones, dropping blanks and repeats.
func Merge(generated, static []string) []string {
	seen := make(map[string]struct{}, len(generated)+len(static))
	out := make([]string, 0, len(generated)+len(static))
	for _, list := range [][]string{generated, static} {
		for _, k := range list {
			if k == "" {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, k)
		}
	}
	return out
}
