package usecase

import (
	"strings"

	"paperdigest/internal/domain"
)

const (
	fallbackMaxHIndex  = 100.0
	fallbackMaxUpvotes = 100.0
)

// applyQualityBoost lifts relevance scores by up to 20 percent based on
// author h-indices and HuggingFace upvotes, each signal normalized against
// the best value observed in the batch. Papers carrying neither signal keep
// their score unchanged.
func applyQualityBoost(ranked []domain.RankedPaper) {
	maxH, maxUpvotes := observedMaxima(ranked)

	for i := range ranked {
		hFactor := 0.0
		if avg := averageHIndex(ranked[i].AuthorHIndices); avg > 0 {
			hFactor = min(avg/maxH, 1)
		}
		upvotesFactor := 0.0
		if ranked[i].Upvotes > 0 {
			upvotesFactor = min(float64(ranked[i].Upvotes)/maxUpvotes, 1)
		}
		ranked[i].RelevanceScore *= 1 + 0.1*hFactor + 0.1*upvotesFactor
	}
}

// observedMaxima scans the batch for the largest single h-index and upvote
// count, falling back to fixed reference values when a signal is absent.
func observedMaxima(ranked []domain.RankedPaper) (maxH, maxUpvotes float64) {
	maxH, maxUpvotes = 0, 0
	for _, rp := range ranked {
		for _, h := range rp.AuthorHIndices {
			if float64(h) > maxH {
				maxH = float64(h)
			}
		}
		if float64(rp.Upvotes) > maxUpvotes {
			maxUpvotes = float64(rp.Upvotes)
		}
	}
	if maxH < 1 {
		maxH = fallbackMaxHIndex
	}
	if maxUpvotes < 1 {
		maxUpvotes = fallbackMaxUpvotes
	}
	return maxH, maxUpvotes
}

func averageHIndex(indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	sum := 0
	for _, h := range indices {
		sum += h
	}
	return float64(sum) / float64(len(indices))
}

// applyAuthorBoost multiplies the score of papers written by a priority
// author. Matching is a case-insensitive substring test, so a configured
// surname matches the full author name.
func applyAuthorBoost(ranked []domain.RankedPaper, priorityAuthors []string, boost float64) {
	if len(priorityAuthors) == 0 || boost == 1 {
		return
	}

	priority := make([]string, 0, len(priorityAuthors))
	for _, a := range priorityAuthors {
		if trimmed := strings.ToLower(strings.TrimSpace(a)); trimmed != "" {
			priority = append(priority, trimmed)
		}
	}

	for i := range ranked {
		if hasPriorityAuthor(ranked[i].Authors, priority) {
			ranked[i].RelevanceScore *= boost
		}
	}
}

func hasPriorityAuthor(authors, priority []string) bool {
	for _, author := range authors {
		lowered := strings.ToLower(author)
		for _, p := range priority {
			if strings.Contains(lowered, p) {
				return true
			}
		}
	}
	return false
}
