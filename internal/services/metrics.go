package services

import (
	"sync"
	"time"
)

// RunMetrics tracks the funnel for one pipeline run. Every stage records
// its drop-off so the summary surfaces where candidates were lost, not
// just how many survived.
type RunMetrics struct {
	mu sync.Mutex

	discovered         int64
	skippedDuplicate   int64
	attemptsExhausted  int64
	fetched            int64
	fetchFailed        int64
	extracted          int64
	extractedFallback  int64
	extractFailed      int64
	filteredOut        int64
	rejectedValidation int64
	persisted          int64
	inserted           int64
	updated            int64
	errors             int64
}

// RunSummary is the user-visible result of one run.
type RunSummary struct {
	RunID              string    `json:"run_id"`
	StartedAt          time.Time `json:"started_at"`
	DurationMS         int64     `json:"duration_ms"`
	Discovered         int64     `json:"discovered"`
	SkippedDuplicate   int64     `json:"skipped_duplicate"`
	AttemptsExhausted  int64     `json:"attempts_exhausted"`
	Fetched            int64     `json:"fetched"`
	FetchFailed        int64     `json:"fetch_failed"`
	Extracted          int64     `json:"extracted"`
	ExtractedFallback  int64     `json:"extracted_fallback"`
	ExtractFailed      int64     `json:"extract_failed"`
	FilteredOut        int64     `json:"filtered_out"`
	RejectedValidation int64     `json:"rejected_by_validation"`
	Persisted          int64     `json:"persisted"`
	Inserted           int64     `json:"inserted"`
	Updated            int64     `json:"updated"`
	Errors             int64     `json:"errors"`
}

// NewRunMetrics creates an empty funnel.
func NewRunMetrics() *RunMetrics {
	return &RunMetrics{}
}

func (m *RunMetrics) add(field *int64, n int64) {
	m.mu.Lock()
	*field += n
	m.mu.Unlock()
}

func (m *RunMetrics) AddDiscovered(n int)        { m.add(&m.discovered, int64(n)) }
func (m *RunMetrics) IncrSkippedDuplicate()      { m.add(&m.skippedDuplicate, 1) }
func (m *RunMetrics) IncrAttemptsExhausted()     { m.add(&m.attemptsExhausted, 1) }
func (m *RunMetrics) IncrFetched()               { m.add(&m.fetched, 1) }
func (m *RunMetrics) IncrFetchFailed()           { m.add(&m.fetchFailed, 1) }
func (m *RunMetrics) IncrExtracted()             { m.add(&m.extracted, 1) }
func (m *RunMetrics) IncrExtractedFallback()     { m.add(&m.extractedFallback, 1) }
func (m *RunMetrics) IncrExtractFailed()         { m.add(&m.extractFailed, 1) }
func (m *RunMetrics) IncrFilteredOut()           { m.add(&m.filteredOut, 1) }
func (m *RunMetrics) IncrRejectedValidation()    { m.add(&m.rejectedValidation, 1) }
func (m *RunMetrics) IncrInserted()              { m.add(&m.inserted, 1); m.add(&m.persisted, 1) }
func (m *RunMetrics) IncrUpdated()               { m.add(&m.updated, 1); m.add(&m.persisted, 1) }
func (m *RunMetrics) IncrErrors()                { m.add(&m.errors, 1) }

// Summary snapshots the funnel into a RunSummary.
func (m *RunMetrics) Summary(runID string, startedAt time.Time) *RunSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	return &RunSummary{
		RunID:              runID,
		StartedAt:          startedAt,
		DurationMS:         time.Since(startedAt).Milliseconds(),
		Discovered:         m.discovered,
		SkippedDuplicate:   m.skippedDuplicate,
		AttemptsExhausted:  m.attemptsExhausted,
		Fetched:            m.fetched,
		FetchFailed:        m.fetchFailed,
		Extracted:          m.extracted,
		ExtractedFallback:  m.extractedFallback,
		ExtractFailed:      m.extractFailed,
		FilteredOut:        m.filteredOut,
		RejectedValidation: m.rejectedValidation,
		Persisted:          m.persisted,
		Inserted:           m.inserted,
		Updated:            m.updated,
		Errors:             m.errors,
	}
}
