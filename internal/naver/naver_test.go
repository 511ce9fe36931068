package naver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscurator/internal/keyword"
	"github.com/deusflow/newscurator/internal/metrics"
	"github.com/deusflow/newscurator/internal/news"
	"github.com/deusflow/newscurator/internal/ratelimit"
	"github.com/deusflow/newscurator/internal/workerpool"
)

type apiItem struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PubDate      string `json:"pubDate"`
}

const pubDate = "Tue, 05 Aug 2025 09:30:00 +0900"

// itemsFor returns five items per keyword: two canonical, three mirrors.
func itemsFor(kw string) []apiItem {
	topics := []string{"반도체 수출", "태풍 북상", "금리 동결", "선거 투표율", "전기차 보조금"}
	out := make([]apiItem, 0, 5)
	for i, topic := range topics {
		link := fmt.Sprintf("https://n.news.naver.com/article/%s/%d", kw, i)
		if i >= 2 {
			link = fmt.Sprintf("https://mirror.example.com/%s/%d", kw, i)
		}
		out = append(out, apiItem{
			Title:        fmt.Sprintf("<b>%s</b> %s 소식", kw, topic),
			OriginalLink: fmt.Sprintf("https://press.example.com/%s/%d", kw, i),
			Link:         link,
			Description:  fmt.Sprintf("%s &quot;%s&quot; 관련 내용 %d", kw, topic, i),
			PubDate:      pubDate,
		})
	}
	return out
}

func newSearchServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) Config {
	return Config{
		ClientID:             "id",
		ClientSecret:         "secret",
		BaseURL:              baseURL + "/v1/search/news.json?query=",
		Display:              10,
		Sort:                 "sim",
		CanonicalHost:        "n.news.naver.com",
		TitleThreshold:       0.5,
		DescriptionThreshold: 0.5,
		MaxPerKeyword:        12,
	}
}

func newTestFetcher(cfg Config) *Fetcher {
	return NewFetcher(cfg, ratelimit.NewLimiter(0), keyword.NewExtractor(nil), nil, WithMetrics(&metrics.Metrics{}))
}

func TestFetch_SendsCredentialsAndQuery(t *testing.T) {
	type seen struct {
		id, secret string
		query      url.Values
	}
	requests := make(chan seen, 1)
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests <- seen{
			id:     r.Header.Get("X-Naver-Client-Id"),
			secret: r.Header.Get("X-Naver-Client-Secret"),
			query:  r.URL.Query(),
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"items": itemsFor("AI")})
	})

	items, err := newTestFetcher(testConfig(srv.URL)).Fetch(context.Background(), "AI 사고")
	require.NoError(t, err)
	got := <-requests

	assert.Equal(t, "id", got.id)
	assert.Equal(t, "secret", got.secret)
	assert.Equal(t, "AI 사고", got.query.Get("query"))
	assert.Equal(t, "10", got.query.Get("display"))
	assert.Equal(t, "sim", got.query.Get("sort"))

	require.Len(t, items, 2)
	assert.Equal(t, "AI 반도체 수출 소식", items[0].Title)
	assert.Equal(t, `AI "반도체 수출" 관련 내용 0`, items[0].Description)
}

func TestFetch_NonOKIsUpstreamError(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errorMessage":"rate limited"}`, http.StatusTooManyRequests)
	})

	_, err := newTestFetcher(testConfig(srv.URL)).Fetch(context.Background(), "AI")
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusTooManyRequests, upErr.StatusCode)
	assert.Equal(t, "AI", upErr.Keyword)
}

func TestFetch_MalformedJSONIsUpstreamError(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items": [`))
	})

	_, err := newTestFetcher(testConfig(srv.URL)).Fetch(context.Background(), "AI")
	var upErr *UpstreamError
	assert.ErrorAs(t, err, &upErr)
}

func TestFetch_MissingItemsIsEmpty(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"total": 0}`))
	})

	items, err := newTestFetcher(testConfig(srv.URL)).Fetch(context.Background(), "AI")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetch_DropsIncompleteDeduplicatesAndTruncates(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		var items []apiItem
		for i := 0; i < 20; i++ {
			items = append(items, apiItem{
				Title:        fmt.Sprintf("기사%d", i),
				OriginalLink: "https://press.example.com/x",
				Link:         fmt.Sprintf("https://n.news.naver.com/article/%d", i),
				Description:  fmt.Sprintf("설명%d", i),
				PubDate:      pubDate,
			})
		}
		// duplicate of item 0 by title
		items = append([]apiItem{items[0]}, items...)
		// missing description
		items = append(items, apiItem{Title: "빈 설명", OriginalLink: "o", Link: "https://n.news.naver.com/article/x", PubDate: pubDate})
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
	})

	cfg := testConfig(srv.URL)
	got, err := newTestFetcher(cfg).Fetch(context.Background(), "AI")
	require.NoError(t, err)
	require.Len(t, got, 12)
	assert.Equal(t, "기사0", got[0].Title)
	assert.Equal(t, "기사1", got[1].Title)
}

func TestCollect_MergesCanonicalItemsPerKeyword(t *testing.T) {
	srv := newSearchServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"items": itemsFor(r.URL.Query().Get("query"))})
	})

	pool := workerpool.New(workerpool.Config{Workers: 3, QueueSize: 60, Policy: workerpool.PolicyCallerRuns})
	defer pool.Close()

	m := &metrics.Metrics{}
	c := NewCollector(newTestFetcher(testConfig(srv.URL)), pool, nil, m)
	got := c.Collect(context.Background(), []string{"AI", "사고"})

	require.Len(t, got, 4)
	byKeyword := map[string][]string{}
	for _, it := range got {
		assert.Contains(t, it.Link, "https://n.news.naver.com/")
		kw := "AI"
		if strings.HasPrefix(it.Title, "사고") {
			kw = "사고"
		}
		byKeyword[kw] = append(byKeyword[kw], it.Link)
	}
	assert.Equal(t, []string{
		"https://n.news.naver.com/article/AI/0",
		"https://n.news.naver.com/article/AI/1",
	}, byKeyword["AI"])
	assert.Equal(t, []string{
		"https://n.news.naver.com/article/사고/0",
		"https://n.news.naver.com/article/사고/1",
	}, byKeyword["사고"])
	assert.Equal(t, int64(4), m.ItemsFetched)
}

type stubFetcher struct {
	calls atomic.Int32
	fn    func(ctx context.Context, kw string) ([]news.RawItem, error)
}

func (s *stubFetcher) Fetch(ctx context.Context, kw string) ([]news.RawItem, error) {
	s.calls.Add(1)
	return s.fn(ctx, kw)
}

func TestCollect_FailedKeywordIsExcluded(t *testing.T) {
	f := &stubFetcher{fn: func(_ context.Context, kw string) ([]news.RawItem, error) {
		if kw == "bad" {
			return nil, &UpstreamError{Keyword: kw, StatusCode: 500}
		}
		return []news.RawItem{{Title: kw}}, nil
	}}
	pool := workerpool.New(workerpool.Config{Workers: 2, QueueSize: 10})
	defer pool.Close()

	got := NewCollector(f, pool, nil, &metrics.Metrics{}).Collect(context.Background(), []string{"good", "bad", "good", "fine"})
	assert.ElementsMatch(t, []news.RawItem{{Title: "good"}, {Title: "fine"}}, got)
	assert.Equal(t, int32(3), f.calls.Load())
}

func TestCollect_AllFailIsEmpty(t *testing.T) {
	f := &stubFetcher{fn: func(context.Context, string) ([]news.RawItem, error) {
		return nil, errors.New("down")
	}}
	pool := workerpool.New(workerpool.Config{Workers: 2, QueueSize: 10})
	defer pool.Close()

	got := NewCollector(f, pool, nil, &metrics.Metrics{}).Collect(context.Background(), []string{"a", "b"})
	assert.Empty(t, got)
}

func TestCollect_CancellationReturnsPartial(t *testing.T) {
	pool := workerpool.New(workerpool.Config{Workers: 2, QueueSize: 10})
	defer pool.Close()
	release := make(chan struct{})
	defer close(release)
	f := &stubFetcher{fn: func(ctx context.Context, kw string) ([]news.RawItem, error) {
		if kw == "slow" {
			<-release
			return []news.RawItem{{Title: "late"}}, nil
		}
		return []news.RawItem{{Title: kw}}, nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	got := NewCollector(f, pool, nil, &metrics.Metrics{}).Collect(ctx, []string{"fast", "slow"})
	assert.Equal(t, []news.RawItem{{Title: "fast"}}, got)
}
