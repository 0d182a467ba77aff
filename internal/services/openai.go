package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"tech-events-scraper/internal/models"
)

// chatCompleter is the slice of the OpenAI client the extractor and the
// validation gate use. The real *openai.Client satisfies it.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Extractor converts raw page content into a structured event record.
// The AI completion path is primary; any API error, timeout, or
// unparsable response routes to the heuristic fallback instead of
// failing the item.
type Extractor struct {
	client           chatCompleter
	fallback         *HeuristicExtractor
	model            string
	temperature      float32
	maxTokens        int
	timeout          time.Duration
	minContentLength int
	logger           *zap.SugaredLogger
}

// extractionPayload is the JSON shape the model is instructed to return.
type extractionPayload struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	IsRemote    bool     `json:"is_remote"`
	City        string   `json:"city"`
	StartDate   string   `json:"start_date"`
	EndDate     string   `json:"end_date"`
	Topics      []string `json:"topics"`
	Sponsors    []string `json:"sponsors"`
	Speakers    []string `json:"speakers"`
	Price       string   `json:"price"`
	Organizer   string   `json:"organizer"`
}

// ExtractorConfig bundles the extractor's tunables.
type ExtractorConfig struct {
	Model            string
	Temperature      float32
	MaxTokens        int
	Timeout          time.Duration
	MinContentLength int
}

// NewExtractor creates an extractor over an OpenAI-compatible client.
func NewExtractor(client chatCompleter, fallback *HeuristicExtractor, cfg ExtractorConfig, logger *zap.SugaredLogger) *Extractor {
	return &Extractor{
		client:           client,
		fallback:         fallback,
		model:            cfg.Model,
		temperature:      cfg.Temperature,
		maxTokens:        cfg.MaxTokens,
		timeout:          cfg.Timeout,
		minContentLength: cfg.MinContentLength,
		logger:           logger,
	}
}

const extractionSystemPrompt = `You are an expert at extracting structured data about tech events (conferences and hackathons) from web page content.

Analyze the provided content and extract the single event the page describes.

OUTPUT FORMAT:
Return ONLY a JSON object with this exact structure, no markdown fences, no commentary:
{
  "name": "Event Name",
  "description": "One or two sentence summary",
  "is_remote": false,
  "city": "City name, or empty string",
  "start_date": "YYYY-MM-DD or empty string",
  "end_date": "YYYY-MM-DD or empty string",
  "topics": ["ai", "machine learning"],
  "sponsors": ["Sponsor Name"],
  "speakers": ["Speaker Name"],
  "price": "Free, $499, or empty string",
  "organizer": "Organizing company or community, or empty string"
}

EXTRACTION RULES:
- Dates must be ISO-8601 (YYYY-MM-DD). If a date is ambiguous, relative ("next month"), or missing, use an empty string. Never guess.
- is_remote is true only for online/virtual events.
- Do not invent details that are not present in the content.
- Use empty strings and empty arrays for unknown fields.
- If the page does not describe an event at all, return {"name": ""}.`

// Extract produces an ExtractedEvent for one fetched page. It never
// returns an error: failures degrade to the heuristic fallback.
func (e *Extractor) Extract(ctx context.Context, raw models.RawContent) models.ExtractedEvent {
	if len(raw.Body) < e.minContentLength {
		e.logger.Debugw("content too short for AI extraction, using fallback",
			"url", raw.URL, "length", len(raw.Body))
		return e.fallback.Extract(raw)
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: extractionSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: e.buildUserPrompt(raw),
			},
		},
	})
	if err != nil {
		e.logger.Warnw("AI extraction failed, using heuristic fallback",
			"url", raw.URL, "stage", "extract", "error", err)
		return e.fallback.Extract(raw)
	}
	if len(resp.Choices) == 0 {
		e.logger.Warnw("AI extraction returned no choices, using heuristic fallback",
			"url", raw.URL, "stage", "extract")
		return e.fallback.Extract(raw)
	}

	var payload extractionPayload
	cleaned := cleanJSONResponse(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		e.logger.Warnw("failed to parse AI extraction response, using heuristic fallback",
			"url", raw.URL, "stage", "extract", "error", err)
		return e.fallback.Extract(raw)
	}

	event := models.ExtractedEvent{
		Name:             strings.TrimSpace(payload.Name),
		URL:              raw.URL,
		Description:      strings.TrimSpace(payload.Description),
		IsRemote:         payload.IsRemote,
		City:             strings.TrimSpace(payload.City),
		StartDate:        models.NormalizeISODate(payload.StartDate),
		EndDate:          models.NormalizeISODate(payload.EndDate),
		Topics:           payload.Topics,
		Sponsors:         payload.Sponsors,
		Speakers:         payload.Speakers,
		Price:            strings.TrimSpace(payload.Price),
		Organizer:        strings.TrimSpace(payload.Organizer),
		ExtractionMethod: models.ExtractionMethodAI,
	}
	event.Success = event.Name != "" && event.URL != ""
	return event
}

func (e *Extractor) buildUserPrompt(raw models.RawContent) string {
	body := raw.Body
	// Rough cap so oversized pages do not blow the context window.
	if len(body) > 24000 {
		body = body[:24000]
	}
	return fmt.Sprintf("Source URL: %s\n\nContent to analyze:\n%s", raw.URL, body)
}

// cleanJSONResponse strips markdown code fences some models wrap around
// JSON output.
func cleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
