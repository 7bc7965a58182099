// Package arxiv provides the arXiv paper sources: the Atom API client and
// the category-listing scanner.
package arxiv

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"paperdigest/internal/domain"
	"paperdigest/internal/source"
)

const defaultAPIBaseURL = "https://export.arxiv.org/api/query"

// Client fetches recent papers from the arXiv Atom API.
type Client struct {
	baseURL string
	parser  *gofeed.Parser
	timeout time.Duration
	logger  *slog.Logger
}

var _ source.Source = (*Client)(nil)

// NewClient wires the Atom feed parser; baseURL defaults to the public API.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "paperdigest/1.0"
	return &Client{baseURL: baseURL, parser: parser, timeout: timeout, logger: logger}
}

// Name identifies the source inside the registry.
func (c *Client) Name() string {
	return "arxiv"
}

// Fetch queries the configured categories sorted by submission date. A
// transport failure is retried once before the source is reported failed.
func (c *Client) Fetch(ctx context.Context, req source.Request) ([]domain.Paper, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories configured")
	}

	terms := make([]string, 0, len(req.Categories))
	for _, cat := range req.Categories {
		terms = append(terms, "cat:"+cat)
	}
	// The API expects the raw +OR+ form, not URL-encoded spaces.
	feedURL := fmt.Sprintf("%s?search_query=%s&sortBy=submittedDate&sortOrder=descending&max_results=%d",
		c.baseURL, strings.Join(terms, "+OR+"), req.MaxResults)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		c.debug("arxiv fetch failed, retrying once", "error", err)
		feed, err = c.parser.ParseURLWithContext(feedURL, ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("query arxiv api: %w", err)
	}

	papers := make([]domain.Paper, 0, len(feed.Items))
	for _, item := range feed.Items {
		papers = append(papers, itemToPaper(item))
	}
	c.debug("arxiv fetch done", "papers", len(papers))
	return papers, nil
}

func itemToPaper(item *gofeed.Item) domain.Paper {
	id := item.GUID
	if idx := strings.Index(id, "/abs/"); idx >= 0 {
		id = id[idx+len("/abs/"):]
	}

	authors := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			authors = append(authors, strings.TrimSpace(a.Name))
		}
	}

	var published, updated time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		updated = item.UpdatedParsed.UTC()
	}

	return domain.Paper{
		ID:         id,
		Title:      collapseWhitespace(item.Title),
		Abstract:   collapseWhitespace(item.Description),
		Authors:    authors,
		Categories: append([]string(nil), item.Categories...),
		Published:  published,
		Updated:    updated,
		Link:       "https://arxiv.org/abs/" + id,
		Source:     "arxiv",
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
