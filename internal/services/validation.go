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

// Validator is the secondary legitimacy gate: a batched AI classification
// catching content that passed the mechanical filters but is not actually
// an event page.
type Validator struct {
	client    chatCompleter
	model     string
	batchSize int
	timeout   time.Duration
	failOpen  bool
	logger    *zap.SugaredLogger
}

// NewValidator creates the validation gate. failOpen controls the policy
// on classifier outage: accept with a loud warning (true) or reject
// (false).
func NewValidator(client chatCompleter, model string, batchSize int, timeout time.Duration, failOpen bool, logger *zap.SugaredLogger) *Validator {
	if batchSize < 1 {
		batchSize = 5
	}
	return &Validator{
		client:    client,
		model:     model,
		batchSize: batchSize,
		timeout:   timeout,
		failOpen:  failOpen,
		logger:    logger,
	}
}

const validationSystemPrompt = `You are validating entries for a tech events database. For each numbered entry decide whether it is a legitimate tech event page (conference or hackathon).

REJECT with the matching category if it is any of:
- "blog-article": blog posts or articles
- "profile-page": user or community profiles
- "service-status-page": status pages, system monitoring, business service pages
- "marketing-product-page": company marketing pages, product demos, ticketing-tool platforms
- "course-tutorial": educational courses or tutorials
- "job-posting": job postings or career pages

ACCEPT if it is a legitimate tech event with clear dates and schedule, a speaker lineup or agenda, registration information, or venue/virtual access details, and a professional tech focus.

Return ONLY a JSON array, one element per entry, no markdown fences:
[{"index": 1, "verdict": "accept"}, {"index": 2, "verdict": "reject", "category": "blog-article"}]`

type validationVerdict struct {
	Index    int    `json:"index"`
	Verdict  string `json:"verdict"`
	Category string `json:"category"`
}

// ValidateBatch classifies events in batches, setting PassedValidation
// and RejectionCategory on each. Input order is preserved.
func (v *Validator) ValidateBatch(ctx context.Context, events []models.ValidatedEvent) []models.ValidatedEvent {
	out := make([]models.ValidatedEvent, len(events))
	copy(out, events)

	for start := 0; start < len(out); start += v.batchSize {
		end := start + v.batchSize
		if end > len(out) {
			end = len(out)
		}
		v.classifyBatch(ctx, out[start:end])
	}
	return out
}

func (v *Validator) classifyBatch(ctx context.Context, batch []models.ValidatedEvent) {
	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	resp, err := v.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       v.model,
		Temperature: 0,
		MaxTokens:   40 * len(batch),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: validationSystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildValidationPrompt(batch),
			},
		},
	})
	if err != nil {
		v.applyOutagePolicy(batch, err)
		return
	}
	if len(resp.Choices) == 0 {
		v.applyOutagePolicy(batch, fmt.Errorf("no response choices from classifier"))
		return
	}

	var verdicts []validationVerdict
	cleaned := cleanJSONResponse(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(cleaned), &verdicts); err != nil {
		v.applyOutagePolicy(batch, fmt.Errorf("unparsable classifier response: %w", err))
		return
	}

	byIndex := make(map[int]validationVerdict, len(verdicts))
	for _, verdict := range verdicts {
		byIndex[verdict.Index] = verdict
	}

	for i := range batch {
		verdict, ok := byIndex[i+1]
		if !ok {
			// Missing verdict for one entry follows the outage policy too.
			batch[i].PassedValidation = v.failOpen
			if !v.failOpen {
				batch[i].RejectionCategory = models.RejectionUnavailable
			}
			continue
		}
		if strings.EqualFold(verdict.Verdict, "accept") {
			batch[i].PassedValidation = true
			continue
		}
		batch[i].PassedValidation = false
		batch[i].RejectionCategory = normalizeRejectionCategory(verdict.Category)
		v.logger.Infow("validation gate rejected event",
			"url", batch[i].URL, "name", batch[i].Name, "category", batch[i].RejectionCategory)
	}
}

// applyOutagePolicy handles classifier unavailability per the configured
// fail-open/fail-closed policy. Either way this is loud: admitting
// unvalidated records or dropping legitimate ones both deserve attention.
func (v *Validator) applyOutagePolicy(batch []models.ValidatedEvent, cause error) {
	if v.failOpen {
		v.logger.Warnw("validation service unavailable, failing OPEN: accepting batch unvalidated",
			"stage", "validate", "batch_size", len(batch), "error", cause)
	} else {
		v.logger.Warnw("validation service unavailable, failing CLOSED: rejecting batch",
			"stage", "validate", "batch_size", len(batch), "error", cause)
	}
	for i := range batch {
		batch[i].PassedValidation = v.failOpen
		if !v.failOpen {
			batch[i].RejectionCategory = models.RejectionUnavailable
		}
	}
}

func buildValidationPrompt(batch []models.ValidatedEvent) string {
	var sb strings.Builder
	sb.WriteString("Entries to validate:\n")
	for i, event := range batch {
		fmt.Fprintf(&sb, "\n%d. Name: %s\n   URL: %s\n   Dates: %s to %s\n   Location: %s\n   Description: %s\n",
			i+1, orUnknown(event.Name), orUnknown(event.URL),
			orUnknown(event.StartDate), orUnknown(event.EndDate),
			orUnknown(event.City), orUnknown(truncate(event.Description, 400)))
	}
	return sb.String()
}

func normalizeRejectionCategory(category string) string {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return models.RejectionMarketingPage
	}
	return category
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
