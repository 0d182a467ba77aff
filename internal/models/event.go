package models

import "time"

// SourceType identifies which event namespace a source feeds.
type SourceType string

const (
	SourceTypeHackathon  SourceType = "hackathon"
	SourceTypeConference SourceType = "conference"
)

// ValidSourceType reports whether the given string is a known source type.
func ValidSourceType(s string) bool {
	switch SourceType(s) {
	case SourceTypeHackathon, SourceTypeConference:
		return true
	}
	return false
}

// Fetch method constants
const (
	FetchMethodPrimary  = "primary"
	FetchMethodFallback = "fallback"
)

// Extraction method constants
const (
	ExtractionMethodAI       = "ai"
	ExtractionMethodFallback = "heuristic-fallback"
)

// Upsert outcome constants
const (
	UpsertInserted = "inserted"
	UpsertUpdated  = "updated"
)

// Validation rejection taxonomy
const (
	RejectionBlogArticle   = "blog-article"
	RejectionProfilePage   = "profile-page"
	RejectionServicePage   = "service-status-page"
	RejectionMarketingPage = "marketing-product-page"
	RejectionCourse        = "course-tutorial"
	RejectionJobPosting    = "job-posting"
	RejectionUnavailable   = "classifier-unavailable"
)

// CandidateURL is a discovered URL before any enrichment. The URL is
// canonicalized by the adapter that emitted it and serves as the dedup key.
type CandidateURL struct {
	URL          string     `json:"url"`
	SourceName   string     `json:"source_name"`
	SourceType   SourceType `json:"source_type"`
	DiscoveredAt time.Time  `json:"discovered_at"`

	// Forced marks a URL pulled from the re-enrichment sample; it bypasses
	// the is_enriched short-circuit for this run.
	Forced bool `json:"forced,omitempty"`
}

// DedupRecord tracks the processing state of a canonical URL.
type DedupRecord struct {
	URL           string            `json:"url" dynamodbav:"url"`
	SourceType    SourceType        `json:"source_type" dynamodbav:"source_type"`
	IsEnriched    bool              `json:"is_enriched" dynamodbav:"is_enriched"`
	FirstSeenAt   time.Time         `json:"first_seen_at" dynamodbav:"first_seen_at"`
	LastAttemptAt time.Time         `json:"last_attempt_at" dynamodbav:"last_attempt_at"`
	AttemptCount  int               `json:"attempt_count" dynamodbav:"attempt_count"`
	Metadata      map[string]string `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
}

// RawContent is the fetched body for one URL. It lives only for the duration
// of a single item's processing and is never persisted.
type RawContent struct {
	URL         string    `json:"url"`
	Body        string    `json:"body"`
	FetchMethod string    `json:"fetch_method"`
	FetchedAt   time.Time `json:"fetched_at"`
	Success     bool      `json:"success"`
}

// ExtractedEvent is the structured record produced by the extractor. Dates
// are ISO-8601 (YYYY-MM-DD) strings; an empty string means unknown and is
// never replaced by a guess.
type ExtractedEvent struct {
	Name             string     `json:"name"`
	URL              string     `json:"url"`
	Description      string     `json:"description,omitempty"`
	IsRemote         bool       `json:"is_remote"`
	City             string     `json:"city"`
	StartDate        string     `json:"start_date"`
	EndDate          string     `json:"end_date"`
	Topics           []string   `json:"topics,omitempty"`
	Sponsors         []string   `json:"sponsors,omitempty"`
	Speakers         []string   `json:"speakers,omitempty"`
	Price            string     `json:"price,omitempty"`
	Organizer        string     `json:"organizer,omitempty"`
	SourceName       string     `json:"source_name,omitempty"`
	SourceType       SourceType `json:"source_type,omitempty"`
	ExtractionMethod string     `json:"extraction_method"`
	Success          bool       `json:"success"`
}

// ValidatedEvent is an ExtractedEvent annotated by the filter and the
// validation gate. Only events with both flags set are persisted.
type ValidatedEvent struct {
	ExtractedEvent

	QualityScore      float64 `json:"quality_score"`
	PassedFilters     bool    `json:"passed_filters"`
	PassedValidation  bool    `json:"passed_validation"`
	RejectionCategory string  `json:"rejection_category,omitempty"`
}

// PersistedEvent is the canonical event store row, keyed by URL.
type PersistedEvent struct {
	ID           string     `json:"id" dynamodbav:"id"`
	URL          string     `json:"url" dynamodbav:"url"`
	Name         string     `json:"name" dynamodbav:"name"`
	Description  string     `json:"description,omitempty" dynamodbav:"description,omitempty"`
	IsRemote     bool       `json:"is_remote" dynamodbav:"is_remote"`
	City         string     `json:"city,omitempty" dynamodbav:"city,omitempty"`
	StartDate    string     `json:"start_date,omitempty" dynamodbav:"start_date,omitempty"`
	EndDate      string     `json:"end_date,omitempty" dynamodbav:"end_date,omitempty"`
	Topics       []string   `json:"topics,omitempty" dynamodbav:"topics,omitempty"`
	Sponsors     []string   `json:"sponsors,omitempty" dynamodbav:"sponsors,omitempty"`
	Speakers     []string   `json:"speakers,omitempty" dynamodbav:"speakers,omitempty"`
	Price        string     `json:"price,omitempty" dynamodbav:"price,omitempty"`
	Organizer    string     `json:"organizer,omitempty" dynamodbav:"organizer,omitempty"`
	SourceName   string     `json:"source_name,omitempty" dynamodbav:"source_name,omitempty"`
	SourceType   SourceType `json:"source_type" dynamodbav:"source_type"`
	QualityScore float64    `json:"quality_score" dynamodbav:"quality_score"`
	CreatedAt    time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" dynamodbav:"updated_at"`
}

// FromValidated builds a PersistedEvent from a validated pipeline event.
// ID and timestamps are assigned by the event store on insert.
func FromValidated(v ValidatedEvent) PersistedEvent {
	return PersistedEvent{
		URL:          v.URL,
		Name:         v.Name,
		Description:  v.Description,
		IsRemote:     v.IsRemote,
		City:         v.City,
		StartDate:    v.StartDate,
		EndDate:      v.EndDate,
		Topics:       v.Topics,
		Sponsors:     v.Sponsors,
		Speakers:     v.Speakers,
		Price:        v.Price,
		Organizer:    v.Organizer,
		SourceName:   v.SourceName,
		SourceType:   v.SourceType,
		QualityScore: v.QualityScore,
	}
}
