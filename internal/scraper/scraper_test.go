package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/newscurator/internal/cache"
	"github.com/deusflow/newscurator/internal/metrics"
	"github.com/deusflow/newscurator/internal/news"
)

const articlePage = `<html><head><title>기사</title></head><body>
<div class="media_end_head_top"><a><img class="media_end_head_top_logo_img" src="logo.png" alt="연합뉴스"></a></div>
<span class="byline"><em class="media_end_head_journalist_name">홍길동 기자</em></span>
<article id="dic_area">
  <span class="end_photo_org"><img id="img1" data-src="%s" src=""></span>
  첫 문장입니다.<br>둘째 줄입니다.
  <p>둘째 문단입니다.</p>
  <div>셋째 문단입니다.</div>
  <script>var tracking = 1;</script>
</article>
</body></html>`

func newArticleServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if r.Header.Get("User-Agent") != "Mozilla/5.0 (Windows NT 10.0; Win64; x64)" {
			http.Error(w, "bot", http.StatusForbidden)
			return
		}
		switch {
		case strings.HasPrefix(r.URL.Path, "/noimg/"):
			fmt.Fprintf(w, articlePage, "")
		case strings.HasPrefix(r.URL.Path, "/gone/"):
			http.NotFound(w, r)
		default:
			fmt.Fprintf(w, articlePage, "https://imgnews.example.com"+r.URL.Path+".jpg")
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func candidate(link string) news.RawItem {
	return news.RawItem{Title: "t", OriginalLink: "o", Link: link, Description: "d", PublishedAt: "p"}
}

func TestExtractDetail_RebuildsParagraphs(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fmt.Sprintf(articlePage, "https://img/1.jpg")))
	require.NoError(t, err)

	d := ExtractDetail(doc, DefaultSelectors())
	assert.Equal(t, "https://img/1.jpg", d.ImageURL)
	assert.Equal(t, "홍길동 기자", d.Journalist)
	assert.Equal(t, "연합뉴스", d.MediaName)
	assert.Equal(t, "첫 문장입니다.\n둘째 줄입니다.\n\n둘째 문단입니다.\n\n셋째 문단입니다.", d.Content)
}

func TestExtractDetail_MissingFieldsAreEmpty(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><p>nothing</p></body></html>`))
	require.NoError(t, err)

	assert.Equal(t, news.Detail{}, ExtractDetail(doc, DefaultSelectors()))
}

func TestFetchDetail_SkipErrors(t *testing.T) {
	srv := newArticleServer(t, nil)
	client := srv.Client()
	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"

	_, err := FetchDetail(context.Background(), client, ua, srv.URL+"/noimg/1", DefaultSelectors())
	var skip *SkipError
	require.ErrorAs(t, err, &skip)
	assert.Contains(t, skip.Reason, "image")

	_, err = FetchDetail(context.Background(), client, ua, srv.URL+"/gone/1", DefaultSelectors())
	require.ErrorAs(t, err, &skip)
	assert.Contains(t, skip.Reason, "404")
}

func TestEnrich_SkipsIncompleteAndKeepsOrder(t *testing.T) {
	srv := newArticleServer(t, nil)

	var items []news.RawItem
	for i := 0; i < 100; i++ {
		path := "/ok/"
		if i%10 < 3 {
			path = "/noimg/"
		}
		items = append(items, candidate(fmt.Sprintf("%s%s%d", srv.URL, path, i)))
	}

	m := &metrics.Metrics{}
	c := NewCrawler(Config{}, nil, WithHTTPClient(srv.Client()), WithMetrics(m))
	got := c.Enrich(context.Background(), items)

	require.Len(t, got, 70)
	prev := -1
	for _, it := range got {
		var n int
		_, err := fmt.Sscanf(it.Link[strings.LastIndex(it.Link, "/")+1:], "%d", &n)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
		assert.True(t, it.Detail.Complete())
	}
	assert.Equal(t, int64(30), m.CrawlSkips)
	assert.Equal(t, int64(70), m.ItemsEnriched)
}

func TestEnrich_CancelDuringDelayReturnsPartial(t *testing.T) {
	srv := newArticleServer(t, nil)
	items := []news.RawItem{candidate(srv.URL + "/ok/1"), candidate(srv.URL + "/ok/2")}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := NewCrawler(Config{Delay: time.Hour}, nil, WithHTTPClient(srv.Client()), WithMetrics(&metrics.Metrics{}))
	got := c.Enrich(ctx, items)

	require.Len(t, got, 1)
	assert.Equal(t, srv.URL+"/ok/1", got[0].Link)
}

func TestEnrich_CacheHitSkipsFetch(t *testing.T) {
	var hits atomic.Int32
	srv := newArticleServer(t, &hits)
	store := cache.NewMemory(time.Hour)
	defer store.Close()

	items := []news.RawItem{candidate(srv.URL + "/ok/1")}
	c := NewCrawler(Config{CacheTTL: time.Hour}, nil,
		WithHTTPClient(srv.Client()), WithCache(store), WithMetrics(&metrics.Metrics{}))

	first := c.Enrich(context.Background(), items)
	second := c.Enrich(context.Background(), items)

	require.Len(t, first, 1)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
}

func TestEnrich_CacheHitsAreNotPaused(t *testing.T) {
	var hits atomic.Int32
	srv := newArticleServer(t, &hits)
	store := cache.NewMemory(time.Hour)
	defer store.Close()

	items := []news.RawItem{candidate(srv.URL + "/ok/1"), candidate(srv.URL + "/ok/2")}
	d := news.Detail{Content: "본문", ImageURL: "i", Journalist: "j", MediaName: "m"}
	for _, it := range items {
		require.NoError(t, store.Set(context.Background(), it.Link, d, time.Hour))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c := NewCrawler(Config{Delay: time.Hour}, nil,
		WithHTTPClient(srv.Client()), WithCache(store), WithMetrics(&metrics.Metrics{}))
	got := c.Enrich(ctx, items)

	require.Len(t, got, 2)
	assert.NoError(t, ctx.Err())
	assert.Zero(t, hits.Load())
}
