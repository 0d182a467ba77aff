package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"tech-events-scraper/internal/models"
)

// stubCompleter replays canned responses, one per call.
type stubCompleter struct {
	responses []string
	err       error
	calls     int
	requests  []openai.ChatCompletionRequest
}

func (s *stubCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.requests = append(s.requests, req)
	defer func() { s.calls++ }()
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	content := ""
	if s.calls < len(s.responses) {
		content = s.responses[s.calls]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func validatedEvents(names ...string) []models.ValidatedEvent {
	events := make([]models.ValidatedEvent, len(names))
	for i, name := range names {
		events[i] = models.ValidatedEvent{
			ExtractedEvent: models.ExtractedEvent{
				Name: name,
				URL:  "https://example.com/" + name,
			},
			PassedFilters: true,
		}
	}
	return events
}

func TestValidateBatchAcceptAndReject(t *testing.T) {
	stub := &stubCompleter{responses: []string{
		`[{"index": 1, "verdict": "accept"},
		  {"index": 2, "verdict": "reject", "category": "blog-article"},
		  {"index": 3, "verdict": "accept"}]`,
	}}
	v := NewValidator(stub, "gpt-4o-mini", 5, time.Second, true, zap.NewNop().Sugar())

	out := v.ValidateBatch(context.Background(), validatedEvents("summit", "blog", "hack"))

	if len(out) != 3 {
		t.Fatalf("got %d events, want 3", len(out))
	}
	if !out[0].PassedValidation || !out[2].PassedValidation {
		t.Error("accepted events not marked as passed")
	}
	if out[1].PassedValidation {
		t.Error("rejected event marked as passed")
	}
	if out[1].RejectionCategory != models.RejectionBlogArticle {
		t.Errorf("RejectionCategory = %q, want %q", out[1].RejectionCategory, models.RejectionBlogArticle)
	}
	if out[0].Name != "summit" || out[1].Name != "blog" || out[2].Name != "hack" {
		t.Error("input order not preserved")
	}
}

func TestValidateBatchSplitsOnBatchSize(t *testing.T) {
	stub := &stubCompleter{responses: []string{
		`[{"index": 1, "verdict": "accept"}, {"index": 2, "verdict": "accept"}]`,
		`[{"index": 1, "verdict": "reject", "category": "job-posting"}]`,
	}}
	v := NewValidator(stub, "gpt-4o-mini", 2, time.Second, true, zap.NewNop().Sugar())

	out := v.ValidateBatch(context.Background(), validatedEvents("a", "b", "c"))

	if stub.calls != 2 {
		t.Errorf("classifier called %d times, want 2", stub.calls)
	}
	if !out[0].PassedValidation || !out[1].PassedValidation {
		t.Error("first batch should be accepted")
	}
	if out[2].PassedValidation {
		t.Error("second batch should be rejected")
	}
	if out[2].RejectionCategory != models.RejectionJobPosting {
		t.Errorf("RejectionCategory = %q", out[2].RejectionCategory)
	}
}

func TestValidateBatchHandlesFencedResponse(t *testing.T) {
	stub := &stubCompleter{responses: []string{
		"```json\n[{\"index\": 1, \"verdict\": \"accept\"}]\n```",
	}}
	v := NewValidator(stub, "gpt-4o-mini", 5, time.Second, false, zap.NewNop().Sugar())

	out := v.ValidateBatch(context.Background(), validatedEvents("summit"))
	if !out[0].PassedValidation {
		t.Error("fenced JSON response not parsed")
	}
}

func TestValidateBatchOutageFailOpen(t *testing.T) {
	stub := &stubCompleter{err: errors.New("status 500")}
	v := NewValidator(stub, "gpt-4o-mini", 5, time.Second, true, zap.NewNop().Sugar())

	out := v.ValidateBatch(context.Background(), validatedEvents("a", "b"))
	for i, event := range out {
		if !event.PassedValidation {
			t.Errorf("event %d rejected under fail-open policy", i)
		}
		if event.RejectionCategory != "" {
			t.Errorf("event %d carries rejection category %q under fail-open", i, event.RejectionCategory)
		}
	}
}

func TestValidateBatchOutageFailClosed(t *testing.T) {
	stub := &stubCompleter{err: errors.New("status 500")}
	v := NewValidator(stub, "gpt-4o-mini", 5, time.Second, false, zap.NewNop().Sugar())

	out := v.ValidateBatch(context.Background(), validatedEvents("a", "b"))
	for i, event := range out {
		if event.PassedValidation {
			t.Errorf("event %d accepted under fail-closed policy", i)
		}
		if event.RejectionCategory != models.RejectionUnavailable {
			t.Errorf("event %d category = %q, want %q", i, event.RejectionCategory, models.RejectionUnavailable)
		}
	}
}

func TestValidateBatchUnparsableResponseFollowsPolicy(t *testing.T) {
	stub := &stubCompleter{responses: []string{"I think these all look fine!"}}
	v := NewValidator(stub, "gpt-4o-mini", 5, time.Second, false, zap.NewNop().Sugar())

	out := v.ValidateBatch(context.Background(), validatedEvents("a"))
	if out[0].PassedValidation {
		t.Error("unparsable response accepted under fail-closed policy")
	}
}

func TestValidateBatchMissingVerdictFollowsPolicy(t *testing.T) {
	// Verdict for entry 2 missing from the response.
	stub := &stubCompleter{responses: []string{
		`[{"index": 1, "verdict": "accept"}]`,
	}}
	v := NewValidator(stub, "gpt-4o-mini", 5, time.Second, false, zap.NewNop().Sugar())

	out := v.ValidateBatch(context.Background(), validatedEvents("a", "b"))
	if !out[0].PassedValidation {
		t.Error("event with explicit accept verdict rejected")
	}
	if out[1].PassedValidation {
		t.Error("event with missing verdict accepted under fail-closed policy")
	}
	if out[1].RejectionCategory != models.RejectionUnavailable {
		t.Errorf("category = %q, want %q", out[1].RejectionCategory, models.RejectionUnavailable)
	}
}

func TestValidateBatchEmptyRejectionCategoryDefaults(t *testing.T) {
	stub := &stubCompleter{responses: []string{
		`[{"index": 1, "verdict": "reject"}]`,
	}}
	v := NewValidator(stub, "gpt-4o-mini", 5, time.Second, true, zap.NewNop().Sugar())

	out := v.ValidateBatch(context.Background(), validatedEvents("promo"))
	if out[0].RejectionCategory != models.RejectionMarketingPage {
		t.Errorf("category = %q, want default %q", out[0].RejectionCategory, models.RejectionMarketingPage)
	}
}

func TestValidateBatchEmptyInput(t *testing.T) {
	stub := &stubCompleter{}
	v := NewValidator(stub, "gpt-4o-mini", 5, time.Second, true, zap.NewNop().Sugar())

	out := v.ValidateBatch(context.Background(), nil)
	if len(out) != 0 {
		t.Errorf("got %d events for empty input", len(out))
	}
	if stub.calls != 0 {
		t.Errorf("classifier called %d times for empty input", stub.calls)
	}
}
