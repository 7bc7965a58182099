package arxiv

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"paperdigest/internal/domain"
	"paperdigest/internal/source"
)

const (
	defaultListingBaseURL = "https://export.arxiv.org/list"
	arxivAbsBaseURL       = "https://arxiv.org"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// ListingScanner crawls category listing pages and extracts papers for the
// requested day. It is an alternate arXiv source that does not depend on
// the API endpoint.
type ListingScanner struct {
	baseURL  string
	client   *http.Client
	pageSize int
	logger   *slog.Logger
}

var _ source.Source = (*ListingScanner)(nil)

// NewListingScanner wires an HTTP client; pageSize defaults to 200.
func NewListingScanner(baseURL string, timeout time.Duration, logger *slog.Logger) *ListingScanner {
	if baseURL == "" {
		baseURL = defaultListingBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ListingScanner{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		pageSize: 200,
		logger:   logger,
	}
}

// Name identifies the source inside the registry.
func (s *ListingScanner) Name() string {
	return "arxiv-listing"
}

// Fetch walks each category's pastweek listing and returns papers published
// on the requested day, up to req.MaxResults.
func (s *ListingScanner) Fetch(ctx context.Context, req source.Request) ([]domain.Paper, error) {
	if len(req.Categories) == 0 {
		return nil, fmt.Errorf("no categories configured")
	}

	targetDay := req.Day.UTC().Truncate(24 * time.Hour)
	results := make([]domain.Paper, 0)
	seen := map[string]struct{}{}

	for _, cat := range req.Categories {
		skip := 0
		for {
			pageURL, err := buildPageURL(fmt.Sprintf("%s/%s/pastweek", s.baseURL, cat), skip, s.pageSize)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat, err)
			}

			doc, err := s.fetchDocument(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat, err)
			}

			pagePapers, shouldContinue := s.extractPapers(doc, targetDay, cat)
			for _, paper := range pagePapers {
				if _, ok := seen[paper.ID]; ok {
					continue
				}
				seen[paper.ID] = struct{}{}
				results = append(results, paper)
				if req.MaxResults > 0 && len(results) >= req.MaxResults {
					return results, nil
				}
			}

			if !shouldContinue {
				break
			}
			skip += s.pageSize
		}
	}

	if s.logger != nil {
		s.logger.Debug("listing fetch done", "papers", len(results), "day", domain.DateKey(targetDay))
	}
	return results, nil
}

func (s *ListingScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "paperdigest/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		// One retry covers transient transport failures.
		resp, err = s.client.Do(req.Clone(ctx))
	}
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}

func (s *ListingScanner) extractPapers(doc *goquery.Document, targetDay time.Time, category string) ([]domain.Paper, bool) {
	var (
		collected    []domain.Paper
		continueScan = true
		processed    int
	)

	doc.Find("dl > dt").EachWithBreak(func(i int, dt *goquery.Selection) bool {
		dd := dt.Next()
		processed++

		paper, publishedAt, err := parseEntry(dt, dd, category)
		if err != nil {
			return true
		}

		paperDay := publishedAt.UTC().Truncate(24 * time.Hour)
		if paperDay.Equal(targetDay) {
			collected = append(collected, paper)
		}
		if paperDay.Before(targetDay) {
			continueScan = false
			return false
		}

		return true
	})

	if processed < s.pageSize {
		continueScan = false
	}

	return collected, continueScan
}

func parseEntry(dt, dd *goquery.Selection, category string) (domain.Paper, time.Time, error) {
	id := strings.TrimSpace(dt.Find("a[href*=\"/abs/\"]").First().Text())
	if id == "" {
		if href, exists := dt.Find("a[href*=\"/abs/\"]").First().Attr("href"); exists {
			id = strings.TrimPrefix(href, "/abs/")
		}
	}
	id = strings.TrimPrefix(id, "arXiv:")

	link := dt.Find("a[href*=\"/abs/\"]").First()
	href, _ := link.Attr("href")
	if !strings.HasPrefix(href, "http") {
		href = arxivAbsBaseURL + href
	}

	title := strings.TrimSpace(dd.Find(".list-title").First().Text())
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))

	abstract := dd.Find(".mathjax").First().Text()
	abstract = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(abstract), "Abstract:"))

	var authors []string
	dd.Find(".list-authors a").Each(func(i int, sel *goquery.Selection) {
		if name := strings.TrimSpace(sel.Text()); name != "" {
			authors = append(authors, name)
		}
	})

	dateText := strings.TrimSpace(dd.Find(".list-date").First().Text())
	if dateText == "" {
		dateText = strings.TrimSpace(dd.Find(".list-dateline").First().Text())
	}

	publishedAt := time.Now().UTC()
	if match := dateExpr.FindString(dateText); match != "" {
		if parsed, err := time.Parse("2 Jan 2006", match); err == nil {
			publishedAt = parsed
		}
	}

	if id == "" {
		id = href
	}

	paper := domain.Paper{
		ID:         id,
		Title:      title,
		Abstract:   abstract,
		Authors:    authors,
		Categories: []string{category},
		Published:  publishedAt,
		Updated:    publishedAt,
		Link:       href,
		Source:     "arxiv-listing",
	}

	return paper, publishedAt, nil
}

func buildPageURL(base string, skip, pageSize int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("skip", strconv.Itoa(skip))
	query.Set("show", strconv.Itoa(pageSize))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
