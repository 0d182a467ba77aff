package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"tech-events-scraper/internal/models"
)

// HeuristicExtractor is the non-AI fallback: regex patterns over the raw
// text recovering whatever fields it can. Success reflects whether the
// minimal fields (name, url) were recovered.
type HeuristicExtractor struct {
	keywords []string
	cities   map[string][]string // canonical name -> aliases
}

var (
	titleTag     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	firstHeading = regexp.MustCompile(`(?m)^#{1,2}\s+(.+)$`)

	monthName = `(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)`

	// "July 14-16, 2025" and "July 14th – 16th 2025"
	sameMonthRange = regexp.MustCompile(`(?i)` + monthName + `\s+(\d{1,2})(?:st|nd|rd|th)?\s*[-–—]\s*(\d{1,2})(?:st|nd|rd|th)?,?\s*(\d{4})`)

	// "July 14, 2025 to August 16, 2025" and "Mar 10 2025 - Mar 12 2025"
	crossMonthRange = regexp.MustCompile(`(?i)` + monthName + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s*(\d{4})\s*(?:to|through|until|[-–—])\s*` + monthName + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s*(\d{4})`)

	// "March 10, 2030" standalone
	singleDate = regexp.MustCompile(`(?i)` + monthName + `\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})`)

	isoDate = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)

	priceToken  = regexp.MustCompile(`(?i)\b(free to attend|free entry|free admission|free)\b|\$\d[\d,]*(?:\.\d{2})?`)
	remoteToken = regexp.MustCompile(`(?i)\b(online|virtual|remote)\b`)
)

// NewHeuristicExtractor builds a fallback extractor over the configured
// topical keywords and the city alias table.
func NewHeuristicExtractor(keywords []string, cities map[string][]string) *HeuristicExtractor {
	return &HeuristicExtractor{keywords: keywords, cities: cities}
}

// Extract recovers a best-effort event from the raw text.
func (h *HeuristicExtractor) Extract(raw models.RawContent) models.ExtractedEvent {
	event := models.ExtractedEvent{
		URL:              raw.URL,
		ExtractionMethod: models.ExtractionMethodFallback,
	}
	if !raw.Success || raw.Body == "" {
		return event
	}

	event.Name = extractName(raw.Body)
	event.StartDate, event.EndDate = extractDates(raw.Body)
	event.Topics = h.matchKeywords(raw.Body)
	event.City, event.IsRemote = h.matchLocation(raw.Body)

	if m := priceToken.FindString(raw.Body); m != "" {
		event.Price = m
	}

	event.Success = event.Name != "" && event.URL != ""
	return event
}

func extractName(body string) string {
	if m := titleTag.FindStringSubmatch(body); m != nil {
		return truncateName(m[1])
	}
	if m := firstHeading.FindStringSubmatch(body); m != nil {
		return truncateName(m[1])
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) <= 120 {
			return truncateName(line)
		}
		if line != "" {
			break
		}
	}
	return ""
}

func truncateName(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 160 {
		s = strings.TrimSpace(s[:160])
	}
	return s
}

// extractDates mirrors the date patterns real event pages use, most
// specific first. Anything that does not parse cleanly stays empty.
func extractDates(body string) (startDate, endDate string) {
	if m := sameMonthRange.FindStringSubmatch(body); m != nil {
		start, okStart := parseMonthDayYear(m[1], m[2], m[4])
		end, okEnd := parseMonthDayYear(m[1], m[3], m[4])
		if okStart && okEnd {
			return models.FormatISODate(start), models.FormatISODate(end)
		}
	}

	if m := crossMonthRange.FindStringSubmatch(body); m != nil {
		start, okStart := parseMonthDayYear(m[1], m[2], m[3])
		end, okEnd := parseMonthDayYear(m[4], m[5], m[6])
		if okStart && okEnd && !end.Before(start) {
			return models.FormatISODate(start), models.FormatISODate(end)
		}
	}

	if dates := isoDate.FindAllString(body, 2); len(dates) > 0 {
		start := models.NormalizeISODate(dates[0])
		end := start
		if len(dates) > 1 {
			if second := models.NormalizeISODate(dates[1]); second != "" && second >= start {
				end = second
			}
		}
		if start != "" {
			return start, end
		}
	}

	if m := singleDate.FindStringSubmatch(body); m != nil {
		if start, ok := parseMonthDayYear(m[1], m[2], m[3]); ok {
			iso := models.FormatISODate(start)
			return iso, iso
		}
	}

	return "", ""
}

func parseMonthDayYear(month, day, year string) (time.Time, bool) {
	for _, layout := range []string{"January 2 2006", "Jan 2 2006"} {
		t, err := time.Parse(layout, fmt.Sprintf("%s %s %s", month, day, year))
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (h *HeuristicExtractor) matchKeywords(body string) []string {
	lower := strings.ToLower(body)
	var topics []string
	for _, kw := range h.keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			topics = append(topics, kw)
		}
		if len(topics) >= 8 {
			break
		}
	}
	return topics
}

func (h *HeuristicExtractor) matchLocation(body string) (city string, remote bool) {
	lower := strings.ToLower(body)
	for canonical, aliases := range h.cities {
		for _, alias := range aliases {
			if strings.Contains(lower, strings.ToLower(alias)) {
				city = canonical
				break
			}
		}
		if city != "" {
			break
		}
	}
	return city, remoteToken.MatchString(body)
}
