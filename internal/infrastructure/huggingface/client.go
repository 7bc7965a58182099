// Package huggingface fetches the HuggingFace Daily Papers listing.
package huggingface

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"paperdigest/internal/domain"
	"paperdigest/internal/source"
)

const (
	defaultBaseURL = "https://huggingface.co/api/daily_papers"
	// The API rejects limits above 50.
	maxAPILimit = 50
)

// Client fetches papers from HuggingFace Daily Papers.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

var _ source.Source = (*Client)(nil)

// NewClient wires an HTTP client against the daily-papers endpoint.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Name identifies the source inside the registry.
func (c *Client) Name() string {
	return "huggingface"
}

type dailyPaperItem struct {
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"publishedAt"`
	Paper       struct {
		ID      string `json:"id"`
		Upvotes int    `json:"upvotes"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"paper"`
}

// Fetch pulls the current daily-papers list, retrying once on transport
// failure.
func (c *Client) Fetch(ctx context.Context, req source.Request) ([]domain.Paper, error) {
	limit := req.MaxResults
	if limit <= 0 || limit > maxAPILimit {
		limit = maxAPILimit
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	items, err := c.fetchItems(ctx, limit)
	if err != nil {
		c.debug("huggingface fetch failed, retrying once", "error", err)
		items, err = c.fetchItems(ctx, limit)
	}
	if err != nil {
		return nil, err
	}

	papers := make([]domain.Paper, 0, len(items))
	for _, item := range items {
		if item.Paper.ID == "" {
			continue
		}

		authors := make([]string, 0, len(item.Paper.Authors))
		for _, a := range item.Paper.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
		}

		var published time.Time
		if item.PublishedAt != "" {
			if parsed, err := time.Parse(time.RFC3339, item.PublishedAt); err == nil {
				published = parsed.UTC()
			}
		}

		papers = append(papers, domain.Paper{
			ID:         item.Paper.ID,
			Title:      item.Title,
			Abstract:   item.Summary,
			Authors:    authors,
			Categories: []string{"huggingface"},
			Published:  published,
			Updated:    published,
			Link:       "https://huggingface.co/papers/" + item.Paper.ID,
			Source:     "huggingface",
			Upvotes:    item.Paper.Upvotes,
		})
	}

	c.debug("huggingface fetch done", "papers", len(papers))
	return papers, nil
}

func (c *Client) fetchItems(ctx context.Context, limit int) ([]dailyPaperItem, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?limit="+strconv.Itoa(limit), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "paperdigest/1.0")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("huggingface returned %s", resp.Status)
	}

	var items []dailyPaperItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return items, nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
