package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/deusflow/newscurator/internal/news"
)

// FileStore keeps saved items in a JSON file.
type FileStore struct {
	filePath string
	ttl      time.Duration
	items    map[string]SavedItem
	now      func() time.Time
	mu       sync.RWMutex
}

// NewFileStore creates a store. Items older than ttl are dropped on load;
// a zero ttl keeps everything.
func NewFileStore(filePath string, ttl time.Duration) *FileStore {
	return &FileStore{
		filePath: filePath,
		ttl:      ttl,
		items:    make(map[string]SavedItem),
		now:      time.Now,
	}
}

// Load loads existing items from file. A missing or empty file is not an error.
func (fs *FileStore) Load() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var items []SavedItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to unmarshal store file: %w", err)
	}

	cutoff := fs.cutoff()
	for _, item := range items {
		if cutoff.IsZero() || item.SavedAt.After(cutoff) {
			fs.items[item.Link] = item
		}
	}
	return nil
}

// Save records items under runID and rewrites the file.
func (fs *FileStore) Save(_ context.Context, runID string, items []news.EnrichedItem) error {
	fs.mu.Lock()
	now := fs.now()
	for _, item := range items {
		fs.items[item.Link] = SavedItem{
			EnrichedItem: item,
			Hash:         Fingerprint(item.Title, item.Link),
			RunID:        runID,
			SavedAt:      now,
		}
	}
	fs.mu.Unlock()

	return fs.flush()
}

// RecentLinks returns links saved after since.
func (fs *FileStore) RecentLinks(_ context.Context, since time.Time) ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var links []string
	for link, item := range fs.items {
		if item.SavedAt.After(since) {
			links = append(links, link)
		}
	}
	sort.Strings(links)
	return links, nil
}

// Items returns every stored item, newest first.
func (fs *FileStore) Items() []SavedItem {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	items := make([]SavedItem, 0, len(fs.items))
	for _, item := range fs.items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].SavedAt.Equal(items[j].SavedAt) {
			return items[i].Link < items[j].Link
		}
		return items[i].SavedAt.After(items[j].SavedAt)
	})
	return items
}

// Cleanup removes expired items from memory.
func (fs *FileStore) Cleanup() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	cutoff := fs.cutoff()
	if cutoff.IsZero() {
		return 0
	}
	removed := 0
	for link, item := range fs.items {
		if item.SavedAt.Before(cutoff) {
			delete(fs.items, link)
			removed++
		}
	}
	return removed
}

func (fs *FileStore) cutoff() time.Time {
	if fs.ttl <= 0 {
		return time.Time{}
	}
	return fs.now().Add(-fs.ttl)
}

func (fs *FileStore) flush() error {
	data, err := json.MarshalIndent(fs.Items(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}
	if err := os.WriteFile(fs.filePath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	return nil
}
