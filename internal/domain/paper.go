package domain

import "time"

// Paper is the canonical metadata record produced by every source client.
// Immutable once fetched.
type Paper struct {
	ID         string    `json:"arxiv_id"`
	Title      string    `json:"title"`
	Abstract   string    `json:"abstract"`
	Authors    []string  `json:"authors"`
	Categories []string  `json:"categories"`
	Published  time.Time `json:"published"`
	Updated    time.Time `json:"updated"`
	Link       string    `json:"link"`
	Source     string    `json:"-"`

	// Quality signals used to adjust relevance before selection. Not part
	// of the digest file format.
	Upvotes        int   `json:"-"`
	AuthorHIndices []int `json:"-"`
}

// RankedPaper is a Paper with a relevance verdict attached by the ranker.
type RankedPaper struct {
	Paper
	RelevanceScore  float64 `json:"relevance_score"`
	RelevanceReason string  `json:"relevance_reason"`
}

// Digest is the persisted ranked-paper artifact for one calendar date.
type Digest struct {
	Date               string        `json:"date"`
	GeneratedAt        time.Time     `json:"generated_at"`
	Categories         []string      `json:"categories"`
	Interests          string        `json:"interests"`
	TotalPapersFetched int           `json:"total_papers_fetched"`
	Papers             []RankedPaper `json:"papers"`
}

// DateKey formats a day as the storage partition key.
func DateKey(day time.Time) string {
	return day.UTC().Format("2006-01-02")
}
