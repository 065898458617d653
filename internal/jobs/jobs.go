// Package jobs builds the recommendation digests delivered by job alerts.
package jobs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"remind_bot/internal/model"
)

// Provider generates the body of a job-alert notification for a user.
type Provider interface {
	Digest(ctx context.Context, userID int64, filterBy model.JobFilter) (string, error)
}

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Listing is one job or internship offer included in a digest.
type Listing struct {
	Title     string
	Salary    string
	Location  string
	Link      string
	Summary   string
	Published time.Time
}

const maxListings = 5

const disclaimer = "Disclaimer: job listings are sourced from a third-party feed " +
	"and we cannot guarantee the legitimacy of every posting. Verify the " +
	"authenticity of an application before submitting personal information."

// FeedProvider builds digests from a job-listings feed.
type FeedProvider struct {
	client  HTTPClient
	url     string
	timeout time.Duration
}

// NewFeedProvider creates a FeedProvider reading listings from url.
func NewFeedProvider(client HTTPClient, url string) *FeedProvider {
	return &FeedProvider{
		client:  client,
		url:     url,
		timeout: 30 * time.Second,
	}
}

// Digest fetches the listings feed and renders a digest for the user.
func (p *FeedProvider) Digest(ctx context.Context, userID int64, filterBy model.JobFilter) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "RemindBot/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return "", fmt.Errorf("parse feed: %w", err)
	}

	listings := make([]Listing, 0, len(feed.Items))
	for _, item := range feed.Items {
		l := Listing{
			Title:   item.Title,
			Link:    item.Link,
			Summary: shorten(item.Description, 300),
		}
		if item.PublishedParsed != nil {
			l.Published = *item.PublishedParsed
		}
		listings = append(listings, l)
	}

	return Render(listings, filterBy), nil
}

// CatalogProvider serves a fixed set of listings. It is the fallback
// when no listings feed is configured.
type CatalogProvider struct{}

// Digest renders the built-in catalog for the user.
func (CatalogProvider) Digest(_ context.Context, _ int64, filterBy model.JobFilter) (string, error) {
	return Render(builtinCatalog(), filterBy), nil
}

// Render orders the listings per the user's preference and formats the
// digest body.
func Render(listings []Listing, filterBy model.JobFilter) string {
	ordered := make([]Listing, len(listings))
	copy(ordered, listings)
	if filterBy == model.FilterDate {
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Published.After(ordered[j].Published)
		})
	}
	if len(ordered) > maxListings {
		ordered = ordered[:maxListings]
	}

	var b strings.Builder
	b.WriteString("Here's your list of job/internship recommendations:\n")
	for i, l := range ordered {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, l.Title)
		if l.Salary != "" {
			fmt.Fprintf(&b, "   Salary: %s\n", l.Salary)
		}
		if l.Location != "" {
			fmt.Fprintf(&b, "   Location: %s\n", l.Location)
		}
		if l.Summary != "" {
			fmt.Fprintf(&b, "   %s\n", l.Summary)
		}
		if l.Link != "" {
			fmt.Fprintf(&b, "   Apply here: %s\n", l.Link)
		}
	}
	b.WriteString("\n")
	b.WriteString(disclaimer)
	return b.String()
}

func shorten(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

func builtinCatalog() []Listing {
	return []Listing{
		{
			Title:    "Junior Data Visualization Engineer",
			Salary:   "$60,000 - $75,000 annually",
			Location: "San Francisco, CA",
			Summary: "Work with the data science team to design and implement " +
				"dashboards and data presentations using tools like Tableau and D3.js.",
			Link: "https://www.techjobportal.com/apply-junior-dve",
		},
		{
			Title:    "Cybersecurity Intern",
			Salary:   "$20 - $30 per hour",
			Location: "Arlington, VA",
			Summary: "Hands-on experience in network security and threat " +
				"assessment, supporting the security team in identifying and " +
				"mitigating vulnerabilities.",
			Link: "https://www.cybersecureintern.com/apply",
		},
	}
}
