package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/newscurator/internal/news"
)

// Selectors locate the detail fields on an article page.
type Selectors struct {
	Content    string
	Image      string
	ImageAttr  string
	Journalist string
	Media      string
	MediaAttr  string
}

// DefaultSelectors match the n.news.naver.com article layout.
func DefaultSelectors() Selectors {
	return Selectors{
		Content:    "article#dic_area",
		Image:      "#img1",
		ImageAttr:  "data-src",
		Journalist: "em.media_end_head_journalist_name",
		Media:      "img.media_end_head_top_logo_img",
		MediaAttr:  "alt",
	}
}

// SkipError explains why a candidate produced no EnrichedItem.
type SkipError struct {
	Link   string
	Reason string
	Cause  error
}

func (e *SkipError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("skip %s: %s: %v", e.Link, e.Reason, e.Cause)
	}
	return fmt.Sprintf("skip %s: %s", e.Link, e.Reason)
}

func (e *SkipError) Unwrap() error { return e.Cause }

// FetchDetail loads one article page and extracts its detail fields.
func FetchDetail(ctx context.Context, client *http.Client, userAgent, link string, sel Selectors) (news.Detail, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return news.Detail{}, &SkipError{Link: link, Reason: "bad link", Cause: err}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return news.Detail{}, &SkipError{Link: link, Reason: "error loading page", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return news.Detail{}, &SkipError{Link: link, Reason: fmt.Sprintf("HTTP error: %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return news.Detail{}, &SkipError{Link: link, Reason: "error parsing HTML", Cause: err}
	}

	d := ExtractDetail(doc, sel)
	if missing := missingFields(d); len(missing) > 0 {
		return news.Detail{}, &SkipError{Link: link, Reason: "missing " + strings.Join(missing, ", ")}
	}
	return d, nil
}

// ExtractDetail reads the four detail fields from doc. Empty strings mean not found.
func ExtractDetail(doc *goquery.Document, sel Selectors) news.Detail {
	image, _ := doc.Find(sel.Image).First().Attr(sel.ImageAttr)
	media, _ := doc.Find(sel.Media).First().Attr(sel.MediaAttr)

	return news.Detail{
		Content:    extractContent(doc.Find(sel.Content).First()),
		ImageURL:   strings.TrimSpace(image),
		Journalist: strings.TrimSpace(doc.Find(sel.Journalist).First().Text()),
		MediaName:  strings.TrimSpace(media),
	}
}

// extractContent rebuilds paragraph breaks from block elements before taking the text.
func extractContent(body *goquery.Selection) string {
	if body.Length() == 0 {
		return ""
	}
	body.Find("script, style").Remove()
	body.Find("br").ReplaceWithHtml("\n")
	body.Find("p, div").BeforeHtml("\n\n")

	return cleanContent(body.Text())
}

// cleanContent trims every line and collapses runs of blank lines.
func cleanContent(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r", ""), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	result := strings.Join(lines, "\n")

	for strings.Contains(result, "\n\n\n") {
		result = strings.ReplaceAll(result, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(result)
}

func missingFields(d news.Detail) []string {
	var missing []string
	if d.Content == "" {
		missing = append(missing, "content")
	}
	if d.ImageURL == "" {
		missing = append(missing, "image")
	}
	if d.Journalist == "" {
		missing = append(missing, "journalist")
	}
	if d.MediaName == "" {
		missing = append(missing, "media")
	}
	return missing
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
