package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"tech-events-scraper/internal/config"
)

func searchSource() config.SourceConfig {
	return config.SourceConfig{
		Name:    "tavily-confs",
		Type:    "conference",
		Adapter: config.AdapterSearch,
		Query:   "upcoming tech conferences",
		Enabled: true,
	}
}

func TestSearchDiscover(t *testing.T) {
	var gotReq tavilySearchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Write([]byte(`{"results": [
			{"title": "AI Summit", "url": "https://conf.example.com/ai-summit?utm_source=tavily", "score": 0.9},
			{"title": "AI Summit dup", "url": "https://conf.example.com/ai-summit", "score": 0.8},
			{"title": "CloudConf", "url": "https://conf.example.com/cloudconf", "score": 0.7}
		]}`))
	}))
	defer server.Close()

	adapter := NewSearchAdapter(searchSource(), "test-key", 10, zap.NewNop().Sugar())
	adapter.endpoint = server.URL

	candidates, err := adapter.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	if gotReq.Query != "upcoming tech conferences" || gotReq.APIKey != "test-key" {
		t.Errorf("request = %+v", gotReq)
	}
	if gotReq.MaxResults != 10 {
		t.Errorf("MaxResults = %d", gotReq.MaxResults)
	}

	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2 after canonical dedup: %+v", len(candidates), candidates)
	}
	if candidates[0].URL != "https://conf.example.com/ai-summit" {
		t.Errorf("first URL = %q", candidates[0].URL)
	}
	if candidates[1].URL != "https://conf.example.com/cloudconf" {
		t.Errorf("second URL = %q", candidates[1].URL)
	}
}

func TestSearchDiscoverAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewSearchAdapter(searchSource(), "test-key", 10, zap.NewNop().Sugar())
	adapter.endpoint = server.URL

	if _, err := adapter.Discover(context.Background()); err == nil {
		t.Error("expected error for non-200 search response")
	}
}

func TestSearchDiscoverEmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	adapter := NewSearchAdapter(searchSource(), "test-key", 10, zap.NewNop().Sugar())
	adapter.endpoint = server.URL

	candidates, err := adapter.Discover(context.Background())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("got %d candidates for empty results", len(candidates))
	}
}
