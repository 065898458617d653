package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"remind_bot/internal/model"
)

type mockClient struct {
	status int
	body   string
	err    error
}

func (m mockClient) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.status,
		Body:       io.NopCloser(strings.NewReader(m.body)),
	}, nil
}

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Job Listings</title>
<item>
<title>Backend Engineer</title>
<link>https://example.com/backend</link>
<description>Build services.</description>
<pubDate>Mon, 01 Apr 2024 10:00:00 GMT</pubDate>
</item>
<item>
<title>Frontend Engineer</title>
<link>https://example.com/frontend</link>
<description>Build interfaces.</description>
<pubDate>Tue, 02 Apr 2024 10:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

func TestFeedProviderDigest(t *testing.T) {
	p := NewFeedProvider(mockClient{status: http.StatusOK, body: testFeed}, "https://example.com/feed")

	digest, err := p.Digest(context.Background(), 1, model.FilterDefault)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if !strings.Contains(digest, "Backend Engineer") || !strings.Contains(digest, "https://example.com/frontend") {
		t.Errorf("digest missing feed listings:\n%s", digest)
	}
	if !strings.Contains(digest, "Disclaimer:") {
		t.Errorf("digest missing disclaimer:\n%s", digest)
	}
	// Default filter keeps feed order.
	if strings.Index(digest, "Backend Engineer") > strings.Index(digest, "Frontend Engineer") {
		t.Errorf("default filter reordered listings:\n%s", digest)
	}
}

func TestFeedProviderDateFilter(t *testing.T) {
	p := NewFeedProvider(mockClient{status: http.StatusOK, body: testFeed}, "https://example.com/feed")

	digest, err := p.Digest(context.Background(), 1, model.FilterDate)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	// Newest first: the frontend listing was published later.
	if strings.Index(digest, "Frontend Engineer") > strings.Index(digest, "Backend Engineer") {
		t.Errorf("date filter did not order newest first:\n%s", digest)
	}
}

func TestFeedProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		client mockClient
	}{
		{name: "http error", client: mockClient{err: errors.New("connection refused")}},
		{name: "bad status", client: mockClient{status: http.StatusBadGateway, body: ""}},
		{name: "malformed feed", client: mockClient{status: http.StatusOK, body: "not a feed"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewFeedProvider(tt.client, "https://example.com/feed")
			if _, err := p.Digest(context.Background(), 1, model.FilterDefault); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestRenderCapsListings(t *testing.T) {
	var listings []Listing
	for i := 0; i < 8; i++ {
		listings = append(listings, Listing{Title: fmt.Sprintf("Role %d", i)})
	}

	digest := Render(listings, model.FilterDefault)
	if !strings.Contains(digest, "Role 4") {
		t.Errorf("fifth listing missing:\n%s", digest)
	}
	if strings.Contains(digest, "Role 5") {
		t.Errorf("digest exceeds the listing cap:\n%s", digest)
	}
}

func TestRenderDateFilterDoesNotMutateInput(t *testing.T) {
	listings := []Listing{
		{Title: "Old", Published: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Title: "New", Published: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	Render(listings, model.FilterDate)
	if listings[0].Title != "Old" {
		t.Errorf("input slice reordered: %+v", listings)
	}
}

func TestCatalogProviderDigest(t *testing.T) {
	digest, err := CatalogProvider{}.Digest(context.Background(), 1, model.FilterSalary)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	for _, want := range []string{
		"Junior Data Visualization Engineer",
		"Salary: $20 - $30 per hour",
		"Location: Arlington, VA",
		"Disclaimer:",
	} {
		if !strings.Contains(digest, want) {
			t.Errorf("digest missing %q:\n%s", want, digest)
		}
	}
}
