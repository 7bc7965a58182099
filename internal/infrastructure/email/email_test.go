package email

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"paperdigest/internal/domain"
)

func sampleDigest() *domain.Digest {
	return &domain.Digest{
		Date:               "2025-06-02",
		GeneratedAt:        time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC),
		Interests:          "graph neural networks",
		TotalPapersFetched: 12,
		Papers: []domain.RankedPaper{
			{
				Paper: domain.Paper{
					ID:      "2506.01001",
					Title:   "Graphs & Beyond",
					Authors: []string{"Ada Lovelace"},
					Link:    "https://arxiv.org/abs/2506.01001",
				},
				RelevanceScore:  8.5,
				RelevanceReason: "directly about <GNNs>",
			},
		},
	}
}

func TestSubjectExpandsDate(t *testing.T) {
	t.Parallel()

	got := Subject("Research digest for {date}", "2025-06-02")
	if got != "Research digest for 2025-06-02" {
		t.Errorf("subject = %q", got)
	}

	if got := Subject("No placeholder", "2025-06-02"); got != "No placeholder" {
		t.Errorf("subject without placeholder = %q", got)
	}
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	body := RenderText(sampleDigest())
	for _, want := range []string{
		"Research digest for 2025-06-02",
		"graph neural networks",
		"1. Graphs & Beyond",
		"Score: 8.5",
		"Ada Lovelace",
		"https://arxiv.org/abs/2506.01001",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("text body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderTextEmptyDigest(t *testing.T) {
	t.Parallel()

	digest := sampleDigest()
	digest.Papers = nil
	body := RenderText(digest)
	if !strings.Contains(body, "No relevant papers today.") {
		t.Errorf("empty digest body = %q", body)
	}
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	t.Parallel()

	body := RenderHTML(sampleDigest())
	if !strings.Contains(body, "Graphs &amp; Beyond") {
		t.Error("title not escaped")
	}
	if !strings.Contains(body, "&lt;GNNs&gt;") {
		t.Error("reason not escaped")
	}
	if strings.Contains(body, "<GNNs>") {
		t.Error("raw markup leaked into HTML body")
	}
}

func TestBuildMessageMultipart(t *testing.T) {
	t.Parallel()

	msg := string(buildMessage("digest@example.com", []string{"a@example.com", "b@example.com"},
		"Subject line", "plain body", "<p>html body</p>"))

	for _, want := range []string{
		"From: digest@example.com\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: Subject line\r\n",
		"multipart/alternative",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Type: text/html; charset=utf-8",
		"plain body",
		"<p>html body</p>",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}

	// The HTML part must come last so clients prefer it.
	if strings.Index(msg, "plain body") > strings.Index(msg, "<p>html body</p>") {
		t.Error("plain text part must precede the HTML part")
	}
	if !strings.HasSuffix(msg, "--"+mimeBoundary+"--\r\n") {
		t.Error("message missing closing boundary")
	}
}

func TestComputeDigestIDStable(t *testing.T) {
	t.Parallel()

	a := ComputeDigestID("2025-06-02", []string{"A@example.com", "b@example.com "}, "Digest {date}")
	b := ComputeDigestID("2025-06-02", []string{"b@example.com", "a@example.com"}, "Digest {date}")
	if a != b {
		t.Errorf("recipient order and casing must not change the ID: %q vs %q", a, b)
	}
	if len(a) != 16 {
		t.Errorf("ID length = %d, want 16", len(a))
	}

	other := ComputeDigestID("2025-06-03", []string{"a@example.com", "b@example.com"}, "Digest {date}")
	if a == other {
		t.Error("different dates must produce different IDs")
	}
}

func TestSentStateRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "sent.json")
	state, err := NewSentState(path)
	if err != nil {
		t.Fatalf("NewSentState: %v", err)
	}

	id := ComputeDigestID("2025-06-02", []string{"a@example.com"}, "Digest")
	if state.AlreadySent(id) {
		t.Error("fresh state must report not sent")
	}
	if err := state.MarkSent(id); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if !state.AlreadySent(id) {
		t.Error("marker lost after MarkSent")
	}

	// A second instance reading the same file sees the marker.
	reopened, err := NewSentState(path)
	if err != nil {
		t.Fatalf("NewSentState reopen: %v", err)
	}
	if !reopened.AlreadySent(id) {
		t.Error("marker not persisted")
	}
}

func TestSentStateToleratesCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sent.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	state, err := NewSentState(path)
	if err != nil {
		t.Fatalf("NewSentState: %v", err)
	}
	if state.AlreadySent("anything") {
		t.Error("corrupt state must behave as empty")
	}
	if err := state.MarkSent("abc123"); err != nil {
		t.Fatalf("MarkSent over corrupt file: %v", err)
	}
	if !state.AlreadySent("abc123") {
		t.Error("marker lost after recovering from corrupt file")
	}
}
