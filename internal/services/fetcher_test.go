package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"tech-events-scraper/internal/models"
)

func scrapeServer(t *testing.T, handler http.HandlerFunc) *FireCrawlClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &FireCrawlClient{
		httpClient: &http.Client{Timeout: 2 * time.Second},
		apiKey:     "test-key",
		baseURL:    server.URL,
	}
}

func pageServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestFetchPrimarySucceeds(t *testing.T) {
	primary := scrapeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"success": true, "data": {"markdown": "# AI Summit"}}`))
	})
	fetcher := NewContentFetcher(primary, NewDirectClient(time.Second), 0, zap.NewNop().Sugar())

	raw := fetcher.Fetch(context.Background(), "https://example.com/summit")

	if !raw.Success {
		t.Fatal("expected successful fetch")
	}
	if raw.FetchMethod != models.FetchMethodPrimary {
		t.Errorf("FetchMethod = %q, want primary", raw.FetchMethod)
	}
	if raw.Body != "# AI Summit" {
		t.Errorf("Body = %q", raw.Body)
	}
	if raw.URL != "https://example.com/summit" {
		t.Errorf("URL = %q", raw.URL)
	}
}

func TestFetchFallsBackWhenPrimaryFails(t *testing.T) {
	primary := scrapeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	page := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><title>AI Summit</title></html>"))
	})
	fetcher := NewContentFetcher(primary, NewDirectClient(time.Second), 0, zap.NewNop().Sugar())

	raw := fetcher.Fetch(context.Background(), page.URL)

	if !raw.Success {
		t.Fatal("expected fallback to succeed")
	}
	if raw.FetchMethod != models.FetchMethodFallback {
		t.Errorf("FetchMethod = %q, want fallback", raw.FetchMethod)
	}
	if raw.Body == "" {
		t.Error("fallback returned empty body")
	}
}

func TestFetchBothStrategiesFail(t *testing.T) {
	primary := scrapeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	page := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	fetcher := NewContentFetcher(primary, NewDirectClient(time.Second), 0, zap.NewNop().Sugar())

	raw := fetcher.Fetch(context.Background(), page.URL)

	if raw.Success {
		t.Fatal("expected fetch failure")
	}
	if raw.Body != "" {
		t.Errorf("failed fetch carries body %q", raw.Body)
	}
	if raw.URL != page.URL {
		t.Errorf("URL = %q", raw.URL)
	}
}

func TestFetchWithoutPrimaryGoesDirect(t *testing.T) {
	page := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>event page</html>"))
	})
	fetcher := NewContentFetcher(nil, NewDirectClient(time.Second), 0, zap.NewNop().Sugar())

	raw := fetcher.Fetch(context.Background(), page.URL)

	if !raw.Success {
		t.Fatal("expected direct fetch to succeed")
	}
	if raw.FetchMethod != models.FetchMethodFallback {
		t.Errorf("FetchMethod = %q", raw.FetchMethod)
	}
}

func TestFetchRetriesTransientPrimaryError(t *testing.T) {
	var calls atomic.Int64
	primary := scrapeServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"success": true, "data": {"markdown": "recovered"}}`))
	})
	fetcher := NewContentFetcher(primary, NewDirectClient(time.Second), time.Millisecond, zap.NewNop().Sugar())

	raw := fetcher.Fetch(context.Background(), "https://example.com/retry")

	if !raw.Success || raw.FetchMethod != models.FetchMethodPrimary {
		t.Fatalf("expected primary to recover on retry, got %+v", raw)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("primary called %d times, want 2", got)
	}
}

func TestScrapeServiceReportsFailure(t *testing.T) {
	primary := scrapeServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "rendering failed"}`))
	})

	if _, err := primary.Scrape(context.Background(), "https://example.com/x"); err == nil {
		t.Error("expected error for unsuccessful scrape response")
	}
}

func TestDirectGetRotatesUserAgents(t *testing.T) {
	var agents []string
	page := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		w.Write([]byte("ok"))
	})

	client := NewDirectClient(time.Second)
	for i := 0; i < 2; i++ {
		if _, err := client.Get(context.Background(), page.URL); err != nil {
			t.Fatal(err)
		}
	}

	if len(agents) != 2 || agents[0] == agents[1] {
		t.Errorf("user agents did not rotate: %v", agents)
	}
}

func TestDirectGetRejectsNon2xx(t *testing.T) {
	page := pageServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	if _, err := NewDirectClient(time.Second).Get(context.Background(), page.URL); err == nil {
		t.Error("expected error for 403 response")
	}
}
