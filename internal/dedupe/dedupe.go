// Package dedupe merges paper lists from multiple sources into one set,
// keyed by a normalized identifier. First-seen metadata wins.
package dedupe

import (
	"regexp"
	"strings"

	"paperdigest/internal/domain"
)

var (
	// Modern arXiv IDs (2401.00001v2) and legacy ones (cs.AI/0401001v1).
	newStyleID = regexp.MustCompile(`^\d{4}\.\d{4,5}(v\d+)?$`)
	oldStyleID = regexp.MustCompile(`^[a-z\-]+(\.[a-z]{2})?/\d{7}(v\d+)?$`)
	versionTag = regexp.MustCompile(`v\d+$`)
)

// NormalizeID canonicalizes a paper identifier for merge comparison.
// Identifiers are lowercased and trimmed; an "arxiv:" prefix is removed and
// a trailing version suffix is stripped for arXiv-style IDs. DOIs and
// "s2:"-prefixed Semantic Scholar IDs get no further treatment.
func NormalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.TrimPrefix(id, "arxiv:")
	if newStyleID.MatchString(id) || oldStyleID.MatchString(id) {
		id = versionTag.ReplaceAllString(id, "")
	}
	return id
}

// Merge removes duplicate papers, preserving insertion order. On a key
// collision the first-seen record is kept regardless of which source it
// came from.
func Merge(papers []domain.Paper) []domain.Paper {
	out := make([]domain.Paper, 0, len(papers))
	seen := make(map[string]struct{}, len(papers))
	for _, p := range papers {
		key := NormalizeID(p.ID)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
