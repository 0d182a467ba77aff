package services

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"tech-events-scraper/internal/config"
	"tech-events-scraper/internal/models"
)

// FilterResult is the filter's verdict on a single event. QualityScore is
// an advisory ranking signal; Passed is the gate.
type FilterResult struct {
	Passed       bool
	QualityScore float64
	Reason       string

	// NormalizedCity is the canonical form of the event's location when it
	// matched the target alias table.
	NormalizedCity string
}

// Filter reject reasons
const (
	ReasonPastEvent        = "past-event"
	ReasonLocationMismatch = "location-mismatch"
)

// EventFilter applies location normalization, the past-event date gate,
// and topical relevance scoring.
type EventFilter struct {
	cfg    config.FilterConfig
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewEventFilter creates a filter from the configured alias tables and
// keyword sets.
func NewEventFilter(cfg config.FilterConfig, logger *zap.SugaredLogger) *EventFilter {
	return &EventFilter{cfg: cfg, logger: logger, now: time.Now}
}

// Evaluate scores one extracted event. baseReliability is the source's
// configured contribution to the quality score.
func (f *EventFilter) Evaluate(event models.ExtractedEvent, sourceType models.SourceType, baseReliability float64) FilterResult {
	city, cityMatched := f.normalizeCity(event.City)
	remote := event.IsRemote || f.looksRemote(event.City)

	locationOK := cityMatched || remote
	if f.cfg.AllowAnywhere[string(sourceType)] {
		locationOK = true
	}

	dateOK := true
	hasDate := false
	gateDate := event.EndDate
	if gateDate == "" {
		gateDate = event.StartDate
	}
	if gateDate != "" {
		if parsed, ok := models.ParseISODate(gateDate); ok {
			hasDate = true
			today := f.today()
			if parsed.Before(today) {
				dateOK = false
			}
		}
	}
	// Unparsable or missing dates degrade the score but do not reject:
	// many legitimate events have partial date info at discovery time.

	score := baseReliability
	if score <= 0 {
		score = 0.5
	}
	if hasDate {
		score += 0.15
	}
	if cityMatched || remote {
		score += 0.10
	}
	if f.keywordMatch(event) {
		score += 0.15
	}
	if f.mentionsPriceOrRegistration(event) {
		score += 0.10
	}
	score = clamp01(score)

	result := FilterResult{QualityScore: score}
	if cityMatched {
		result.NormalizedCity = city
	}
	switch {
	case !dateOK:
		result.Reason = ReasonPastEvent
	case !locationOK:
		result.Reason = ReasonLocationMismatch
	default:
		result.Passed = true
	}

	if !result.Passed {
		f.logger.Debugw("event filtered out",
			"url", event.URL, "stage", "filter", "reason", result.Reason, "score", score)
	}
	return result
}

// NormalizeCity maps a free-text location onto the canonical city set.
func (f *EventFilter) NormalizeCity(location string) (string, bool) {
	return f.normalizeCity(location)
}

func (f *EventFilter) normalizeCity(location string) (string, bool) {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return "", false
	}
	for _, city := range f.cfg.TargetCities {
		for _, alias := range city.Aliases {
			if strings.Contains(loc, strings.ToLower(alias)) {
				return city.Name, true
			}
		}
		if strings.Contains(loc, strings.ToLower(city.Name)) {
			return city.Name, true
		}
	}
	return "", false
}

func (f *EventFilter) looksRemote(location string) bool {
	loc := strings.ToLower(location)
	aliases := f.cfg.RemoteAliases
	if len(aliases) == 0 {
		aliases = []string{"remote", "online", "virtual"}
	}
	for _, alias := range aliases {
		if strings.Contains(loc, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}

func (f *EventFilter) keywordMatch(event models.ExtractedEvent) bool {
	var sb strings.Builder
	sb.WriteString(event.Name)
	sb.WriteString(" ")
	sb.WriteString(event.Description)
	for _, topic := range event.Topics {
		sb.WriteString(" ")
		sb.WriteString(topic)
	}
	text := strings.ToLower(sb.String())

	for _, kw := range f.cfg.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (f *EventFilter) mentionsPriceOrRegistration(event models.ExtractedEvent) bool {
	if event.Price != "" {
		return true
	}
	text := strings.ToLower(event.Name + " " + event.Description)
	for _, token := range []string{"register", "registration", "prize", "tickets"} {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

func (f *EventFilter) today() time.Time {
	now := f.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
