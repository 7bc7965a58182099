package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"paperdigest/internal/source"
)

const sampleListing = `<html><body>
<dl>
<dt>
  <span class="list-identifier"><a href="/abs/2506.01001" title="Abstract">arXiv:2506.01001</a></span>
</dt>
<dd>
  <div class="meta">
    <div class="list-title">Title: Learning to Learn</div>
    <div class="list-authors"><a href="#">Ada Lovelace</a>, <a href="#">Alan Turing</a></div>
    <div class="list-date">Mon, 2 Jun 2025</div>
    <p class="mathjax">Abstract: We study meta learning.</p>
  </div>
</dd>
<dt>
  <span class="list-identifier"><a href="/abs/2506.01002" title="Abstract">arXiv:2506.01002</a></span>
</dt>
<dd>
  <div class="meta">
    <div class="list-title">Title: Another Result</div>
    <div class="list-authors"><a href="#">Grace Hopper</a></div>
    <div class="list-date">Mon, 2 Jun 2025</div>
    <p class="mathjax">Abstract: A second abstract.</p>
  </div>
</dd>
<dt>
  <span class="list-identifier"><a href="/abs/2505.09999" title="Abstract">arXiv:2505.09999</a></span>
</dt>
<dd>
  <div class="meta">
    <div class="list-title">Title: Older Work</div>
    <div class="list-authors"><a href="#">Old Author</a></div>
    <div class="list-date">Fri, 30 May 2025</div>
    <p class="mathjax">Abstract: From an earlier day.</p>
  </div>
</dd>
</dl>
</body></html>`

func TestBuildPageURL(t *testing.T) {
	t.Parallel()

	got, err := buildPageURL("https://export.arxiv.org/list/cs.AI/pastweek", 200, 100)
	if err != nil {
		t.Fatalf("buildPageURL: %v", err)
	}
	if !strings.Contains(got, "skip=200") || !strings.Contains(got, "show=100") {
		t.Errorf("unexpected url %q", got)
	}
}

func TestParseEntry(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(sampleListing))
	if err != nil {
		t.Fatalf("parse sample: %v", err)
	}

	dt := doc.Find("dl > dt").First()
	paper, publishedAt, err := parseEntry(dt, dt.Next(), "cs.AI")
	if err != nil {
		t.Fatalf("parseEntry: %v", err)
	}

	if paper.ID != "2506.01001" {
		t.Errorf("ID = %q", paper.ID)
	}
	if paper.Title != "Learning to Learn" {
		t.Errorf("title = %q", paper.Title)
	}
	if paper.Abstract != "We study meta learning." {
		t.Errorf("abstract = %q", paper.Abstract)
	}
	if len(paper.Authors) != 2 || paper.Authors[1] != "Alan Turing" {
		t.Errorf("authors = %v", paper.Authors)
	}
	if paper.Link != "https://arxiv.org/abs/2506.01001" {
		t.Errorf("link = %q", paper.Link)
	}
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if !publishedAt.Equal(want) {
		t.Errorf("published = %v, want %v", publishedAt, want)
	}
	if len(paper.Categories) != 1 || paper.Categories[0] != "cs.AI" {
		t.Errorf("categories = %v", paper.Categories)
	}
}

func TestListingFetchFiltersByDay(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/cs.AI/pastweek") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(sampleListing))
	}))
	defer server.Close()

	scanner := NewListingScanner(server.URL, 5*time.Second, nil)
	papers, err := scanner.Fetch(context.Background(), source.Request{
		Day:        time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC),
		Categories: []string{"cs.AI"},
		MaxResults: 50,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(papers) != 2 {
		t.Fatalf("expected 2 papers for the target day, got %d", len(papers))
	}
	for _, p := range papers {
		if p.ID == "2505.09999" {
			t.Error("paper from an earlier day must be filtered out")
		}
		if p.Source != "arxiv-listing" {
			t.Errorf("source = %q", p.Source)
		}
	}
}

func TestListingFetchHonorsMaxResults(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleListing))
	}))
	defer server.Close()

	scanner := NewListingScanner(server.URL, 5*time.Second, nil)
	papers, err := scanner.Fetch(context.Background(), source.Request{
		Day:        time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Categories: []string{"cs.AI"},
		MaxResults: 1,
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
}

func TestListingFetchReportsHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	scanner := NewListingScanner(server.URL, 5*time.Second, nil)
	_, err := scanner.Fetch(context.Background(), source.Request{
		Day:        time.Now(),
		Categories: []string{"cs.AI"},
	})
	if err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
