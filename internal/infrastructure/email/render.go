// Package email renders digests and delivers them, with an idempotency
// guard so a digest is sent at most once per parameter set.
package email

import (
	"fmt"
	"html"
	"strings"

	"paperdigest/internal/domain"
)

// Subject expands the {date} placeholder in the configured subject template.
func Subject(template, date string) string {
	return strings.ReplaceAll(template, "{date}", date)
}

// RenderText builds the plain-text body for a digest.
func RenderText(digest *domain.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research digest for %s\n", digest.Date)
	fmt.Fprintf(&b, "Interests: %s\n", digest.Interests)
	fmt.Fprintf(&b, "Papers fetched: %d, selected: %d\n\n", digest.TotalPapersFetched, len(digest.Papers))

	if len(digest.Papers) == 0 {
		b.WriteString("No relevant papers today.\n")
		return b.String()
	}

	for i, paper := range digest.Papers {
		fmt.Fprintf(&b, "%d. %s\n", i+1, paper.Title)
		fmt.Fprintf(&b, "   Score: %.1f - %s\n", paper.RelevanceScore, paper.RelevanceReason)
		if len(paper.Authors) > 0 {
			fmt.Fprintf(&b, "   Authors: %s\n", strings.Join(paper.Authors, ", "))
		}
		fmt.Fprintf(&b, "   %s\n\n", paper.Link)
	}
	return b.String()
}

// RenderHTML builds the HTML body for a digest.
func RenderHTML(digest *domain.Digest) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>Research digest for %s</h2>", html.EscapeString(digest.Date))
	fmt.Fprintf(&b, "<p>Interests: %s</p>", html.EscapeString(digest.Interests))
	fmt.Fprintf(&b, "<p>Papers fetched: %d, selected: %d</p>", digest.TotalPapersFetched, len(digest.Papers))

	if len(digest.Papers) == 0 {
		b.WriteString("<p>No relevant papers today.</p></body></html>")
		return b.String()
	}

	b.WriteString("<ol>")
	for _, paper := range digest.Papers {
		fmt.Fprintf(&b, `<li><a href="%s">%s</a><br>`,
			html.EscapeString(paper.Link), html.EscapeString(paper.Title))
		fmt.Fprintf(&b, "Score: %.1f &mdash; %s<br>",
			paper.RelevanceScore, html.EscapeString(paper.RelevanceReason))
		if len(paper.Authors) > 0 {
			fmt.Fprintf(&b, "<em>%s</em>", html.EscapeString(strings.Join(paper.Authors, ", ")))
		}
		b.WriteString("</li>")
	}
	b.WriteString("</ol></body></html>")
	return b.String()
}
