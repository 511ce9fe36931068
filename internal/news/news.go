package news

import (
	"fmt"
	"strings"
	"time"
)

// PubDateLayout is the timestamp format the search API uses for pubDate.
const PubDateLayout = "Mon, 02 Jan 2006 15:04:05 -0700"

// RawItem is one search result as returned by the upstream API, after text cleanup.
type RawItem struct {
	Title        string `json:"title"`
	OriginalLink string `json:"originallink"`
	Link         string `json:"link"`
	Description  string `json:"description"`
	PublishedAt  string `json:"pubDate"`
}

// Complete reports whether every field is non-empty.
func (r RawItem) Complete() bool {
	return r.Title != "" && r.OriginalLink != "" && r.Link != "" &&
		r.Description != "" && r.PublishedAt != ""
}

// PublishedTime parses PublishedAt, falling back to now when the source format is off.
func (r RawItem) PublishedTime() time.Time {
	t, err := time.Parse(PubDateLayout, strings.TrimSpace(r.PublishedAt))
	if err != nil {
		return time.Now()
	}
	return t
}

// Detail holds the fields scraped from an article page.
type Detail struct {
	Content    string `json:"content"`
	ImageURL   string `json:"image_url"`
	Journalist string `json:"journalist"`
	MediaName  string `json:"media_name"`
}

// Complete reports whether all four detail fields were found.
func (d Detail) Complete() bool {
	return d.Content != "" && d.ImageURL != "" && d.Journalist != "" && d.MediaName != ""
}

// EnrichedItem is a RawItem with a complete Detail.
type EnrichedItem struct {
	RawItem
	Detail
}

// Category is the closed set of topics the scorer may assign.
type Category string

const (
	Society     Category = "SOCIETY"
	Economy     Category = "ECONOMY"
	Politics    Category = "POLITICS"
	Culture     Category = "CULTURE"
	IT          Category = "IT"
	NotFiltered Category = "NOT_FILTERED"
)

// Categories lists the selectable categories in display order.
func Categories() []Category {
	return []Category{Society, Economy, Politics, Culture, IT}
}

// ParseCategory maps a case-insensitive name to a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case Society, Economy, Politics, Culture, IT, NotFiltered:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// ScoredItem is an EnrichedItem with the scorer's verdict.
type ScoredItem struct {
	EnrichedItem
	Category Category `json:"category"`
	Score    float64  `json:"score"`
}
