// Package semanticscholar queries the Semantic Scholar Graph API.
package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"paperdigest/internal/domain"
	"paperdigest/internal/source"
)

const (
	defaultBaseURL = "https://api.semanticscholar.org/graph/v1/paper/search"
	// The API caps one page at 100 results.
	maxAPILimit = 100

	searchFields = "paperId,externalIds,title,abstract,authors,authors.hIndex,year,fieldsOfStudy"
)

// Client fetches papers from Semantic Scholar keyword search.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

var _ source.Source = (*Client)(nil)

// NewClient wires an HTTP client; the API key is optional but recommended.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// Name identifies the source inside the registry.
func (c *Client) Name() string {
	return "semantic_scholar"
}

type searchResponse struct {
	Data []struct {
		PaperID       string   `json:"paperId"`
		Title         string   `json:"title"`
		Abstract      string   `json:"abstract"`
		Year          int      `json:"year"`
		FieldsOfStudy []string `json:"fieldsOfStudy"`
		ExternalIDs   struct {
			ArXiv string `json:"ArXiv"`
			DOI   string `json:"DOI"`
		} `json:"externalIds"`
		Authors []struct {
			Name   string `json:"name"`
			HIndex *int   `json:"hIndex"`
		} `json:"authors"`
	} `json:"data"`
}

// Fetch searches by the interest statement. A rate-limited or failed call
// is retried once before the source is reported failed.
func (c *Client) Fetch(ctx context.Context, req source.Request) ([]domain.Paper, error) {
	limit := req.MaxResults
	if limit <= 0 || limit > maxAPILimit {
		limit = maxAPILimit
	}

	params := url.Values{}
	params.Set("query", req.Interests)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", searchFields)
	params.Set("fieldsOfStudy", "Computer Science")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.search(ctx, params)
	if err != nil {
		c.debug("semantic scholar fetch failed, retrying once", "error", err)
		result, err = c.search(ctx, params)
	}
	if err != nil {
		return nil, err
	}

	papers := make([]domain.Paper, 0, len(result.Data))
	for _, item := range result.Data {
		id := item.ExternalIDs.ArXiv
		if id == "" {
			// No arXiv ID; fall back to the Semantic Scholar paper ID.
			id = "s2:" + item.PaperID
		}

		authors := make([]string, 0, len(item.Authors))
		var hIndices []int
		for _, a := range item.Authors {
			if a.Name != "" {
				authors = append(authors, a.Name)
			}
			if a.HIndex != nil {
				hIndices = append(hIndices, *a.HIndex)
			}
		}

		categories := item.FieldsOfStudy
		if len(categories) == 0 {
			categories = []string{"semantic_scholar"}
		}

		var published time.Time
		if item.Year > 0 {
			published = time.Date(item.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		}

		papers = append(papers, domain.Paper{
			ID:         id,
			Title:      item.Title,
			Abstract:   item.Abstract,
			Authors:    authors,
			Categories: categories,
			Published:  published,
			Updated:    published,
			Link:       "https://www.semanticscholar.org/paper/" + item.PaperID,
			Source:     "semantic_scholar",

			AuthorHIndices: hIndices,
		})
	}

	c.debug("semantic scholar fetch done", "papers", len(papers))
	return papers, nil
}

func (c *Client) search(ctx context.Context, params url.Values) (*searchResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("semantic scholar rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("semantic scholar returned %s", resp.Status)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
