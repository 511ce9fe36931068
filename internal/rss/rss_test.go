package rss

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>속보</title>
<item><title>국회 예산안 처리</title><link>https://example.com/1</link></item>
<item><title> </title><link>https://example.com/2</link></item>
<item><title>반도체 수출 증가</title><link>https://example.com/3</link></item>
</channel></rss>`

func TestLoadFeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feeds:\n  - https://a.example/rss\n  - https://b.example/rss\n"), 0o644))

	feeds, err := LoadFeeds(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example/rss", "https://b.example/rss"}, feeds)

	_, err = LoadFeeds(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFetchHeadlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, feedXML)
	}))
	defer srv.Close()

	f := NewFetcher(0, nil)
	got, err := f.FetchHeadlines(context.Background(), []string{srv.URL + "/broken", srv.URL + "/rss"})
	require.NoError(t, err)
	assert.Equal(t, []string{"국회 예산안 처리", "반도체 수출 증가"}, got)

	_, err = f.FetchHeadlines(context.Background(), []string{srv.URL + "/broken"})
	assert.Error(t, err)
}
