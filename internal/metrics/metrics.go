package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Collection
	KeywordsRequested int64
	KeywordsFailed    int64
	ItemsFetched      int64
	DuplicatesRemoved int64
	DegradedKeywords  int64

	// Crawl
	ItemsEnriched int64
	CrawlSkips    int64
	CacheHits     int64

	// Analysis
	BatchesSucceeded int64
	BatchesFailed    int64
	BatchesRejected  int64
	ItemsScored      int64
	ItemsSelected    int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool

	budgetStats func() map[string]interface{}
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) add(field *int64, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*field += int64(n)
}

func (m *Metrics) AddKeywordsRequested(n int) { m.add(&m.KeywordsRequested, n) }
func (m *Metrics) IncrementKeywordsFailed()   { m.add(&m.KeywordsFailed, 1) }
func (m *Metrics) AddItemsFetched(n int)      { m.add(&m.ItemsFetched, n) }
func (m *Metrics) AddDuplicatesRemoved(n int) { m.add(&m.DuplicatesRemoved, n) }
func (m *Metrics) AddDegradedKeywords(n int)  { m.add(&m.DegradedKeywords, n) }
func (m *Metrics) IncrementItemsEnriched()    { m.add(&m.ItemsEnriched, 1) }
func (m *Metrics) IncrementCrawlSkips()       { m.add(&m.CrawlSkips, 1) }
func (m *Metrics) IncrementCacheHits()        { m.add(&m.CacheHits, 1) }
func (m *Metrics) IncrementBatchesSucceeded() { m.add(&m.BatchesSucceeded, 1) }
func (m *Metrics) IncrementBatchesFailed()    { m.add(&m.BatchesFailed, 1) }
func (m *Metrics) IncrementBatchesRejected()  { m.add(&m.BatchesRejected, 1) }
func (m *Metrics) AddItemsScored(n int)       { m.add(&m.ItemsScored, n) }
func (m *Metrics) AddItemsSelected(n int)     { m.add(&m.ItemsSelected, n) }

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

// SetBudgetSource attaches the LLM call budget reported under "llm_budget".
func (m *Metrics) SetBudgetSource(fn func() map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgetStats = fn
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]interface{}{
		"keywords_requested":         m.KeywordsRequested,
		"keywords_failed":            m.KeywordsFailed,
		"items_fetched":              m.ItemsFetched,
		"duplicates_removed":         m.DuplicatesRemoved,
		"degraded_keyword_sets":      m.DegradedKeywords,
		"items_enriched":             m.ItemsEnriched,
		"crawl_skips":                m.CrawlSkips,
		"crawl_cache_hits":           m.CacheHits,
		"batches_succeeded":          m.BatchesSucceeded,
		"batches_failed":             m.BatchesFailed,
		"batches_rejected":           m.BatchesRejected,
		"items_scored":               m.ItemsScored,
		"items_selected":             m.ItemsSelected,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
	if m.budgetStats != nil {
		stats["llm_budget"] = m.budgetStats()
	}
	return stats
}
