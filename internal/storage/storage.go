// Package storage persists curated items and the history used to avoid repeats.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deusflow/newscurator/internal/news"
)

// Sink receives the curated items of one run.
type Sink interface {
	Save(ctx context.Context, runID string, items []news.EnrichedItem) error
}

// LinkHistory reports links saved since a point in time.
type LinkHistory interface {
	RecentLinks(ctx context.Context, since time.Time) ([]string, error)
}

// SavedItem is a curated item as persisted.
type SavedItem struct {
	news.EnrichedItem
	Hash    string    `json:"hash"`
	RunID   string    `json:"run_id"`
	SavedAt time.Time `json:"saved_at"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Fingerprint creates a stable hash for a news item from its normalized
// title and the link's domain.
func Fingerprint(title, link string) string {
	normalizedTitle := strings.ToLower(strings.TrimSpace(title))
	normalizedTitle = strings.Join(strings.Fields(normalizedTitle), " ")

	h := sha256.New()
	h.Write([]byte(normalizedTitle + "|" + extractDomain(link)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// extractDomain extracts domain from URL
func extractDomain(url string) string {
	if url == "" {
		return "unknown"
	}

	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "https://")

	domain, _, _ := strings.Cut(url, "/")
	if domain == "" {
		return "unknown"
	}
	domain = strings.TrimPrefix(domain, "www.")
	return strings.ToLower(domain)
}
