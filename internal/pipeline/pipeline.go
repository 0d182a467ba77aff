package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"tech-events-scraper/internal/config"
	"tech-events-scraper/internal/models"
	"tech-events-scraper/internal/services"
	"tech-events-scraper/internal/sources"
)

// Fetcher retrieves page content for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) models.RawContent
}

// Extractor turns raw page content into a structured event.
type Extractor interface {
	Extract(ctx context.Context, raw models.RawContent) models.ExtractedEvent
}

// Filter scores and gates extracted events.
type Filter interface {
	Evaluate(event models.ExtractedEvent, sourceType models.SourceType, baseReliability float64) services.FilterResult
}

// Validator classifies events as legitimate or not.
type Validator interface {
	ValidateBatch(ctx context.Context, events []models.ValidatedEvent) []models.ValidatedEvent
}

// DedupStore tracks per-URL processing state.
type DedupStore interface {
	RecordAttempt(ctx context.Context, url string, sourceType models.SourceType) (*models.DedupRecord, error)
	MarkEnriched(ctx context.Context, url string) error
	SampleEnriched(ctx context.Context, n int, sourceType models.SourceType) ([]string, error)
}

// EventStore persists events.
type EventStore interface {
	Upsert(ctx context.Context, incoming models.PersistedEvent) (string, error)
}

// Archiver stores run artifacts.
type Archiver interface {
	ArchiveRun(ctx context.Context, runID string, events []models.PersistedEvent, summary *services.RunSummary) error
}

// Pipeline wires discovery, enrichment, filtering, validation, and
// persistence into a single run.
type Pipeline struct {
	cfg       *config.Config
	adapters  []sources.Adapter
	fetcher   Fetcher
	extractor Extractor
	filter    Filter
	validator Validator // nil when validation is disabled
	dedup     DedupStore
	events    EventStore
	archiver  Archiver // nil when archiving is disabled
	logger    *zap.SugaredLogger

	// reliability maps source name to its configured base quality score.
	reliability map[string]float64
}

// New builds a pipeline. validator and archiver may be nil to disable
// those stages.
func New(cfg *config.Config, adapters []sources.Adapter, fetcher Fetcher, extractor Extractor,
	filter Filter, validator Validator, dedup DedupStore, events EventStore,
	archiver Archiver, logger *zap.SugaredLogger) *Pipeline {

	reliability := make(map[string]float64, len(cfg.Sources))
	for _, src := range cfg.Sources {
		reliability[src.Name] = src.Reliability
	}

	return &Pipeline{
		cfg:         cfg,
		adapters:    adapters,
		fetcher:     fetcher,
		extractor:   extractor,
		filter:      filter,
		validator:   validator,
		dedup:       dedup,
		events:      events,
		archiver:    archiver,
		logger:      logger,
		reliability: reliability,
	}
}

// Run executes one full pipeline run and returns its summary. Per-URL
// failures are contained: they are counted and logged, never fatal.
func (p *Pipeline) Run(ctx context.Context) (*services.RunSummary, error) {
	startedAt := time.Now()
	runID := models.GenerateRunID(startedAt)
	metrics := services.NewRunMetrics()

	p.logger.Infow("starting run", "run_id", runID, "sources", len(p.adapters))

	candidates, err := p.discover(ctx)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, p.reenrichSample(ctx)...)
	metrics.AddDiscovered(len(candidates))

	passed := p.enrich(ctx, candidates, metrics)

	validated := p.validate(ctx, passed, metrics)

	persisted := p.persist(ctx, validated, metrics)

	summary := metrics.Summary(runID, startedAt)
	p.archive(ctx, runID, persisted, summary)

	p.logger.Infow("run complete",
		"run_id", runID,
		"discovered", summary.Discovered,
		"skipped_duplicate", summary.SkippedDuplicate,
		"fetched", summary.Fetched,
		"extracted", summary.Extracted,
		"filtered_out", summary.FilteredOut,
		"rejected", summary.RejectedValidation,
		"persisted", summary.Persisted,
		"errors", summary.Errors,
		"duration_ms", summary.DurationMS)
	return summary, nil
}

// discover collects candidate URLs from all adapters, deduplicating
// within the run and capping the total. A single failing adapter does
// not abort discovery; a run where every adapter fails does.
func (p *Pipeline) discover(ctx context.Context) ([]models.CandidateURL, error) {
	var candidates []models.CandidateURL
	seen := make(map[string]bool)
	failed := 0

	for _, adapter := range p.adapters {
		found, err := adapter.Discover(ctx)
		if err != nil {
			p.logger.Errorw("source discovery failed", "source", adapter.Name(), "error", err)
			failed++
			continue
		}
		p.logger.Infow("source discovered URLs", "source", adapter.Name(), "count", len(found))

		for _, cand := range found {
			if seen[cand.URL] {
				continue
			}
			seen[cand.URL] = true
			candidates = append(candidates, cand)
			if len(candidates) >= p.cfg.Run.MaxTotalURLs {
				p.logger.Warnw("run URL cap reached", "cap", p.cfg.Run.MaxTotalURLs)
				return candidates, nil
			}
		}
	}

	if failed == len(p.adapters) && len(p.adapters) > 0 {
		return nil, fmt.Errorf("all %d sources failed discovery", failed)
	}
	return candidates, nil
}

// reenrichSample pulls already-enriched URLs back into the run so stale
// records get refreshed. Sampled URLs bypass the duplicate short-circuit.
func (p *Pipeline) reenrichSample(ctx context.Context) []models.CandidateURL {
	if p.cfg.Reenrich.SampleSize <= 0 || !p.cfg.Reenrich.Refetch {
		return nil
	}

	sourceTypes := make(map[models.SourceType]bool)
	for _, adapter := range p.adapters {
		sourceTypes[adapter.SourceType()] = true
	}

	var forced []models.CandidateURL
	now := time.Now().UTC()
	for sourceType := range sourceTypes {
		urls, err := p.dedup.SampleEnriched(ctx, p.cfg.Reenrich.SampleSize, sourceType)
		if err != nil {
			p.logger.Errorw("re-enrichment sample failed", "source_type", sourceType, "error", err)
			continue
		}
		for _, url := range urls {
			forced = append(forced, models.CandidateURL{
				URL:          url,
				SourceName:   "reenrich-sample",
				SourceType:   sourceType,
				DiscoveredAt: now,
				Forced:       true,
			})
		}
	}
	if len(forced) > 0 {
		p.logger.Infow("re-enriching sampled URLs", "count", len(forced))
	}
	return forced
}

// enrich runs the per-URL stages (dedup check, fetch, extract, filter)
// across a bounded worker pool and returns the events that passed the
// filter.
func (p *Pipeline) enrich(ctx context.Context, candidates []models.CandidateURL, metrics *services.RunMetrics) []models.ValidatedEvent {
	var (
		mu     sync.Mutex
		passed []models.ValidatedEvent
		wg     sync.WaitGroup
	)

	workers := make(chan struct{}, semSize(p.cfg.Run.WorkerCount))
	fetchSem := make(chan struct{}, semSize(p.cfg.Fetch.MaxConcurrent))
	extractSem := make(chan struct{}, semSize(p.cfg.Extraction.MaxConcurrent))

	for _, cand := range candidates {
		wg.Add(1)
		workers <- struct{}{}

		go func(cand models.CandidateURL) {
			defer wg.Done()
			defer func() { <-workers }()

			event, ok := p.processCandidate(ctx, cand, fetchSem, extractSem, metrics)
			if !ok {
				return
			}
			mu.Lock()
			passed = append(passed, event)
			mu.Unlock()
		}(cand)
	}
	wg.Wait()

	return passed
}

func semSize(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func (p *Pipeline) processCandidate(ctx context.Context, cand models.CandidateURL,
	fetchSem, extractSem chan struct{}, metrics *services.RunMetrics) (models.ValidatedEvent, bool) {

	var zero models.ValidatedEvent

	record, err := p.dedup.RecordAttempt(ctx, cand.URL, cand.SourceType)
	if err != nil {
		p.logger.Errorw("dedup attempt failed", "url", cand.URL, "error", err)
		metrics.IncrErrors()
		return zero, false
	}
	if record.IsEnriched && !cand.Forced {
		metrics.IncrSkippedDuplicate()
		return zero, false
	}
	if budget := p.cfg.Run.MaxAttemptsPerURL; budget > 0 && record.AttemptCount > budget && !cand.Forced {
		p.logger.Debugw("attempt budget exhausted", "url", cand.URL, "attempts", record.AttemptCount)
		metrics.IncrAttemptsExhausted()
		return zero, false
	}

	fetchSem <- struct{}{}
	raw := p.fetcher.Fetch(ctx, cand.URL)
	<-fetchSem
	if !raw.Success {
		metrics.IncrFetchFailed()
		return zero, false
	}
	metrics.IncrFetched()

	extractSem <- struct{}{}
	extracted := p.extractor.Extract(ctx, raw)
	<-extractSem
	if !extracted.Success {
		metrics.IncrExtractFailed()
		return zero, false
	}
	metrics.IncrExtracted()
	if extracted.ExtractionMethod == models.ExtractionMethodFallback {
		metrics.IncrExtractedFallback()
	}

	// The canonical candidate URL is the dedup and store key; the
	// extractor may have seen a different href on the page.
	extracted.URL = cand.URL
	extracted.SourceName = cand.SourceName
	extracted.SourceType = cand.SourceType

	result := p.filter.Evaluate(extracted, cand.SourceType, p.reliability[cand.SourceName])
	if !result.Passed {
		metrics.IncrFilteredOut()
		return zero, false
	}
	if result.NormalizedCity != "" {
		extracted.City = result.NormalizedCity
	}

	return models.ValidatedEvent{
		ExtractedEvent: extracted,
		QualityScore:   result.QualityScore,
		PassedFilters:  true,
	}, true
}

// validate runs the legitimacy gate, or waves everything through when it
// is disabled.
func (p *Pipeline) validate(ctx context.Context, events []models.ValidatedEvent, metrics *services.RunMetrics) []models.ValidatedEvent {
	if p.validator == nil || !p.cfg.Validation.Enabled {
		for i := range events {
			events[i].PassedValidation = true
		}
		return events
	}

	validated := p.validator.ValidateBatch(ctx, events)
	for _, event := range validated {
		if !event.PassedValidation {
			metrics.IncrRejectedValidation()
			p.logger.Infow("event rejected by validation",
				"url", event.URL, "name", event.Name, "category", event.RejectionCategory)
		}
	}
	return validated
}

// persist upserts every validated event and marks its URL enriched only
// after the write succeeds.
func (p *Pipeline) persist(ctx context.Context, events []models.ValidatedEvent, metrics *services.RunMetrics) []models.PersistedEvent {
	var stored []models.PersistedEvent

	for _, event := range events {
		if !event.PassedValidation {
			continue
		}

		persisted := models.FromValidated(event)
		outcome, err := p.events.Upsert(ctx, persisted)
		if err != nil {
			p.logger.Errorw("event upsert failed", "url", event.URL, "error", err)
			metrics.IncrErrors()
			continue
		}
		switch outcome {
		case models.UpsertInserted:
			metrics.IncrInserted()
		case models.UpsertUpdated:
			metrics.IncrUpdated()
		}
		stored = append(stored, persisted)

		if err := p.dedup.MarkEnriched(ctx, event.URL); err != nil {
			p.logger.Errorw("failed to mark URL enriched", "url", event.URL, "error", err)
			metrics.IncrErrors()
		}
	}
	return stored
}

func (p *Pipeline) archive(ctx context.Context, runID string, events []models.PersistedEvent, summary *services.RunSummary) {
	if p.archiver == nil || !p.cfg.Storage.ArchiveEnabled {
		return
	}
	if err := p.archiver.ArchiveRun(ctx, runID, events, summary); err != nil {
		p.logger.Errorw("run archive failed", "run_id", runID, "error", err)
	}
}
