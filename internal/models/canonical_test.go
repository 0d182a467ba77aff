package models

import "testing"

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lowercases scheme and host",
			input: "HTTPS://Example.COM/Event",
			want:  "https://example.com/Event",
		},
		{
			name:  "strips fragment",
			input: "https://example.com/event#agenda",
			want:  "https://example.com/event",
		},
		{
			name:  "strips tracking params",
			input: "https://example.com/event?utm_source=x&utm_medium=email&id=7",
			want:  "https://example.com/event?id=7",
		},
		{
			name:  "strips trailing slash",
			input: "https://example.com/event/",
			want:  "https://example.com/event",
		},
		{
			name:  "tracking params plus fragment plus trailing slash",
			input: "https://example.com/event/?utm_source=x#foo",
			want:  "https://example.com/event",
		},
		{
			name:  "keeps meaningful query params",
			input: "https://example.com/events?page=2",
			want:  "https://example.com/events?page=2",
		},
		{
			name:  "strips gclid and fbclid",
			input: "https://example.com/e?gclid=abc&fbclid=def",
			want:  "https://example.com/e",
		},
		{
			name:  "root path collapses to bare host",
			input: "https://example.com/",
			want:  "https://example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizeURL(tt.input)
			if err != nil {
				t.Fatalf("CanonicalizeURL(%q) returned error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalizeURLEquivalence(t *testing.T) {
	a, err := CanonicalizeURL("https://example.com/event/?utm_source=x#foo")
	if err != nil {
		t.Fatal(err)
	}
	b, err := CanonicalizeURL("https://example.com/event")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected equivalent canonical forms, got %q and %q", a, b)
	}
}

func TestCanonicalizeURLRejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no scheme", "example.com/event"},
		{"ftp scheme", "ftp://example.com/file"},
		{"no host", "https:///event"},
		{"garbage", "://"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CanonicalizeURL(tt.input); err == nil {
				t.Errorf("CanonicalizeURL(%q) expected error, got none", tt.input)
			}
		})
	}
}
