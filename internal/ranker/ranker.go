// Package ranker scores papers against an interest statement through an
// LLM backend, in bounded-size concurrent batches.
package ranker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"paperdigest/internal/domain"
	"paperdigest/internal/ports"
)

const (
	scoreMin = 0.0
	scoreMax = 10.0
)

// Ranker fans one LLM call per paper out inside a batch, waits for the
// batch to settle, then sleeps before starting the next batch. Per-paper
// failures are recorded and the paper is dropped from the output.
type Ranker struct {
	backend    ports.RankingBackend
	batchSize  int
	batchDelay time.Duration
	logger     *slog.Logger
}

// New constructs a ranker. batchSize must be at least 1 (validated by config).
func New(backend ports.RankingBackend, batchSize int, batchDelay time.Duration, logger *slog.Logger) *Ranker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Ranker{
		backend:    backend,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		logger:     logger,
	}
}

// Rank scores every paper and returns the survivors in input order together
// with the per-paper failures. Output cardinality never exceeds input and
// every output paper corresponds to an input paper.
func (r *Ranker) Rank(ctx context.Context, papers []domain.Paper, interests string) ([]domain.RankedPaper, []domain.Failure) {
	ranked := make([]domain.RankedPaper, 0, len(papers))
	var failures []domain.Failure

	for start := 0; start < len(papers); start += r.batchSize {
		end := start + r.batchSize
		if end > len(papers) {
			end = len(papers)
		}
		batch := papers[start:end]

		batchRanked, batchFailures := r.rankBatch(ctx, batch, interests)
		ranked = append(ranked, batchRanked...)
		failures = append(failures, batchFailures...)

		if end < len(papers) && r.batchDelay > 0 {
			select {
			case <-time.After(r.batchDelay):
			case <-ctx.Done():
				r.debug("ranking cancelled between batches", "ranked", len(ranked))
				return ranked, failures
			}
		}
	}

	return ranked, failures
}

type slot struct {
	verdict ports.RankVerdict
	err     error
}

// rankBatch issues one concurrent call per paper. Results are paired with
// input papers by index, so completion order never reorders the output.
func (r *Ranker) rankBatch(ctx context.Context, batch []domain.Paper, interests string) ([]domain.RankedPaper, []domain.Failure) {
	slots := make([]slot, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verdict, err := r.backend.Submit(ctx, batch[i], interests)
			slots[i] = slot{verdict: verdict, err: err}
		}(i)
	}
	wg.Wait()

	ranked := make([]domain.RankedPaper, 0, len(batch))
	var failures []domain.Failure
	for i, s := range slots {
		if s.err != nil {
			rankErr := &domain.RankingError{PaperID: batch[i].ID, Err: s.err}
			r.warn("ranking failed", "paper", batch[i].ID, "error", s.err)
			failures = append(failures, domain.Failure{
				Stage:   domain.StageRank,
				Subject: batch[i].ID,
				Err:     rankErr.Error(),
			})
			continue
		}
		ranked = append(ranked, domain.RankedPaper{
			Paper:           batch[i],
			RelevanceScore:  clamp(s.verdict.Score),
			RelevanceReason: s.verdict.Reason,
		})
	}

	return ranked, failures
}

// clamp pulls out-of-range scores into bounds instead of rejecting them.
func clamp(score float64) float64 {
	if score < scoreMin {
		return scoreMin
	}
	if score > scoreMax {
		return scoreMax
	}
	return score
}

func (r *Ranker) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Ranker) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
