package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/newscurator/internal/llm"
	"github.com/deusflow/newscurator/internal/news"
)

// History records which keywords were used on which day.
type History interface {
	SaveKeywords(ctx context.Context, kw Keywords, day time.Time) error
	OverusedKeywords(ctx context.Context, since time.Time, minUses int) ([]string, error)
	KeywordsOn(ctx context.Context, day time.Time) ([]string, error)
	RecentKeywords(ctx context.Context, since time.Time) ([]string, error)
}

// HistoryConfig controls which past keywords are excluded or shown as context.
type HistoryConfig struct {
	OveruseDays    int
	OveruseMinUses int
	RecentDays     int
}

// LLMGenerator asks a language model for today's keywords per category.
type LLMGenerator struct {
	client  llm.Client
	history History
	cfg     HistoryConfig
	now     func() time.Time
	logger  *slog.Logger
}

// NewLLMGenerator creates a generator. history may be nil.
func NewLLMGenerator(client llm.Client, history History, cfg HistoryConfig, logger *slog.Logger) *LLMGenerator {
	if cfg.OveruseDays <= 0 {
		cfg.OveruseDays = 5
	}
	if cfg.OveruseMinUses <= 0 {
		cfg.OveruseMinUses = 3
	}
	if cfg.RecentDays <= 0 {
		cfg.RecentDays = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMGenerator{client: client, history: history, cfg: cfg, now: time.Now, logger: logger}
}

func (g *LLMGenerator) Generate(ctx context.Context) ([]string, error) {
	kw, err := g.GenerateByCategory(ctx)
	if err != nil {
		return nil, err
	}
	return kw.Flatten(), nil
}

// GenerateByCategory returns generated keywords, or DefaultKeywords when the
// model call fails. The result is recorded in the history either way.
func (g *LLMGenerator) GenerateByCategory(ctx context.Context) (Keywords, error) {
	today := truncateDay(g.now())
	exclude := g.excludeKeywords(ctx, today)
	recent := g.recentKeywords(ctx, today)

	g.logger.Info("generating keywords", "date", today.Format(time.DateOnly), "exclude", exclude)

	kw, err := g.ask(ctx, today, recent, exclude)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		g.logger.Error("keyword generation failed, using defaults", "error", err)
		kw = DefaultKeywords()
	}

	if g.history != nil {
		if err := g.history.SaveKeywords(ctx, kw, today); err != nil {
			g.logger.Warn("failed to save keyword history", "error", err)
		}
	}
	return kw, nil
}

func (g *LLMGenerator) excludeKeywords(ctx context.Context, today time.Time) []string {
	if g.history == nil {
		return nil
	}
	var exclude []string
	overused, err := g.history.OverusedKeywords(ctx, today.AddDate(0, 0, -g.cfg.OveruseDays), g.cfg.OveruseMinUses)
	if err != nil {
		g.logger.Warn("failed to load overused keywords", "error", err)
	}
	exclude = append(exclude, overused...)

	yesterday, err := g.history.KeywordsOn(ctx, today.AddDate(0, 0, -1))
	if err != nil {
		g.logger.Warn("failed to load yesterday's keywords", "error", err)
	}
	exclude = append(exclude, yesterday...)
	return Merge(exclude, nil)
}

func (g *LLMGenerator) recentKeywords(ctx context.Context, today time.Time) []string {
	if g.history == nil {
		return nil
	}
	recent, err := g.history.RecentKeywords(ctx, today.AddDate(0, 0, -g.cfg.RecentDays))
	if err != nil {
		g.logger.Warn("failed to load recent keywords", "error", err)
	}
	return recent
}

type keywordResponse struct {
	Society  []string `json:"society"`
	Economy  []string `json:"economy"`
	Politics []string `json:"politics"`
	Culture  []string `json:"culture"`
	IT       []string `json:"it"`
}

func (g *LLMGenerator) ask(ctx context.Context, today time.Time, recent, exclude []string) (Keywords, error) {
	raw, err := g.client.GenerateJSON(ctx, buildKeywordPrompt(today, recent, exclude))
	if err != nil {
		return nil, err
	}

	var resp keywordResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode keyword response: %w", err)
	}

	kw := Keywords{
		news.Society:  clean(resp.Society, exclude),
		news.Economy:  clean(resp.Economy, exclude),
		news.Politics: clean(resp.Politics, exclude),
		news.Culture:  clean(resp.Culture, exclude),
		news.IT:       clean(resp.IT, exclude),
	}
	for _, c := range news.Categories() {
		if len(kw[c]) == 0 {
			return nil, fmt.Errorf("no keywords for %s", c)
		}
	}
	return kw, nil
}

func buildKeywordPrompt(today time.Time, recent, exclude []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "오늘은 %s입니다. 네이버 뉴스 검색에 사용할 키워드를 카테고리별로 2개씩 생성하세요.\n", today.Format(time.DateOnly))
	sb.WriteString("카테고리: society, economy, politics, culture, it.\n")
	sb.WriteString("키워드는 한두 단어의 명사로, 오늘 주목받을 만한 주제여야 합니다.\n")
	if len(recent) > 0 {
		fmt.Fprintf(&sb, "최근 사용한 키워드(참고): %s\n", strings.Join(recent, ", "))
	}
	if len(exclude) > 0 {
		fmt.Fprintf(&sb, "다음 키워드는 사용하지 마세요: %s\n", strings.Join(exclude, ", "))
	}
	sb.WriteString(`응답 형식: {"society":["..",".."],"economy":[],"politics":[],"culture":[],"it":[]}`)
	return sb.String()
}

func clean(in, exclude []string) []string {
	banned := make(map[string]struct{}, len(exclude))
	for _, e := range exclude {
		banned[e] = struct{}{}
	}
	var out []string
	for _, k := range in {
		k = strings.TrimSpace(k)
		if _, ok := banned[k]; ok {
			continue
		}
		out = append(out, k)
	}
	return Merge(out, nil)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
