package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/deusflow/newscurator/internal/llm"
	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/ratelimit"
	"github.com/deusflow/newscurator/internal/retry"
)

const scoreSchema = `{
  "type": "object",
  "required": ["results"],
  "properties": {
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["index", "category", "score"],
        "properties": {
          "index": {"type": "integer", "minimum": 0},
          "category": {"type": "string", "minLength": 1},
          "score": {"type": "number", "minimum": 0, "maximum": 100}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(scoreSchema)

// ScorerConfig tunes LLMScorer.
type ScorerConfig struct {
	MaxContentRunes int
	RetryAttempts   int
	RetryDelay      time.Duration
}

// LLMScorer asks a language model to categorize and rate each item.
type LLMScorer struct {
	client llm.Client
	budget *ratelimit.Budget
	cfg    ScorerConfig
	logger *slog.Logger
}

// NewLLMScorer creates a scorer. budget may be nil for unlimited calls.
func NewLLMScorer(client llm.Client, budget *ratelimit.Budget, cfg ScorerConfig, logger *slog.Logger) *LLMScorer {
	if cfg.MaxContentRunes <= 0 {
		cfg.MaxContentRunes = 1500
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMScorer{client: client, budget: budget, cfg: cfg, logger: logger}
}

type scoreResponse struct {
	Results []struct {
		Index    int     `json:"index"`
		Category string  `json:"category"`
		Score    float64 `json:"score"`
	} `json:"results"`
}

// Score sends one batch to the model. Items the model rates as NOT_FILTERED
// are dropped from the result.
func (s *LLMScorer) Score(ctx context.Context, batch []news.EnrichedItem) ([]news.ScoredItem, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	provider := string(s.client.Provider())
	if s.budget != nil && !s.budget.CanUse(provider) {
		return nil, fmt.Errorf("%s: %w", provider, ratelimit.ErrBudgetExhausted)
	}
	prompt := s.buildPrompt(batch)

	var raw string
	err := retry.WithRetry(ctx, retry.RetryConfig{
		MaxAttempts: s.cfg.RetryAttempts,
		Delay:       s.cfg.RetryDelay,
		Backoff:     true,
	}, func() error {
		if s.budget != nil {
			if err := s.budget.Use(provider); err != nil {
				return retry.Permanent(err)
			}
		}
		out, err := s.client.GenerateJSON(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			s.logger.Debug("scoring call failed", "provider", provider, "error", err)
			return err
		}
		raw = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return parseScores(raw, batch)
}

func (s *LLMScorer) buildPrompt(batch []news.EnrichedItem) string {
	var sb strings.Builder
	sb.WriteString("다음 뉴스 기사들을 분석하세요. 각 기사에 대해 카테고리와 중요도 점수를 매기세요.\n")
	sb.WriteString("카테고리: SOCIETY, ECONOMY, POLITICS, CULTURE, IT. ")
	sb.WriteString("어디에도 맞지 않거나 광고성, 중복성 기사는 NOT_FILTERED.\n")
	sb.WriteString("점수: 0에서 100 사이, 사회적 영향력과 시의성이 클수록 높게.\n")
	sb.WriteString(`응답 형식: {"results":[{"index":0,"category":"SOCIETY","score":87}]}` + "\n\n")

	for i, item := range batch {
		fmt.Fprintf(&sb, "[%d]\n제목: %s\n본문: %s\n\n", i, item.Title, llm.TruncateRunes(item.Content, s.cfg.MaxContentRunes))
	}
	return sb.String()
}

func parseScores(raw string, batch []news.EnrichedItem) ([]news.ScoredItem, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid scoring response: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("scoring response failed schema validation: %s", strings.Join(msgs, "; "))
	}

	var resp scoreResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode scoring response: %w", err)
	}

	var (
		out  []news.ScoredItem
		errs []error
		seen = make(map[int]bool, len(batch))
	)
	for _, r := range resp.Results {
		if r.Index >= len(batch) || seen[r.Index] {
			errs = append(errs, fmt.Errorf("unexpected result index %d", r.Index))
			continue
		}
		seen[r.Index] = true

		category, err := news.ParseCategory(r.Category)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if category == news.NotFiltered {
			continue
		}
		out = append(out, news.ScoredItem{EnrichedItem: batch[r.Index], Category: category, Score: r.Score})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
