package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"paperdigest/internal/config"
	"paperdigest/internal/dedupe"
	"paperdigest/internal/domain"
	"paperdigest/internal/ports"
	"paperdigest/internal/ranker"
	"paperdigest/internal/source"
)

// GeneratorDeps wires all driven adapters into the digest generator.
type GeneratorDeps struct {
	Registry *source.Registry
	Ranker   *ranker.Ranker
	Store    ports.DigestStore
	Memory   ports.PaperMemory
	Logger   *slog.Logger
}

// Generator runs the fetch, dedupe, rank, select, persist pipeline and
// maps its outcome onto a GenerationResult.
type Generator struct {
	registry *source.Registry
	ranker   *ranker.Ranker
	store    ports.DigestStore
	memory   ports.PaperMemory
	logger   *slog.Logger
}

// NewGenerator constructs the orchestration component.
func NewGenerator(deps GeneratorDeps) *Generator {
	return &Generator{
		registry: deps.Registry,
		ranker:   deps.Ranker,
		store:    deps.Store,
		memory:   deps.Memory,
		logger:   deps.Logger,
	}
}

// Options selects the target date and overwrite behavior for one run.
type Options struct {
	// Date defaults to the current UTC day.
	Date time.Time
	// Overwrite replaces an existing digest instead of reusing it.
	Overwrite bool
}

// Generate produces the digest for the target date. Reruns for a date that
// already has a stored digest return it without touching sources or the
// LLM unless Overwrite is set.
func (g *Generator) Generate(ctx context.Context, cfg config.DigestConfig, opts Options) domain.GenerationResult {
	runID := uuid.NewString()
	day := opts.Date
	if day.IsZero() {
		day = time.Now().UTC()
	}
	dateKey := domain.DateKey(day)

	log := g.logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("run_id", runID, "date", dateKey)

	if !opts.Overwrite {
		if existing, err := g.existingDigest(ctx, dateKey); err != nil {
			return failed(runID, err)
		} else if existing != nil {
			log.Info("digest already exists, reusing stored digest")
			return domain.GenerationResult{RunID: runID, Status: domain.StatusCompleted, Digest: existing}
		}
	}

	// Fetching. A source returning zero papers is a success; the run is
	// Failed only when no source succeeded at all.
	papers, fetchFailures := g.fetchAll(ctx, cfg, day, log)
	failures := fetchFailures
	if len(cfg.Sources) > 0 && len(fetchFailures) == len(cfg.Sources) {
		errs := make([]error, 0, len(fetchFailures))
		for _, f := range fetchFailures {
			errs = append(errs, errors.New(f.Err))
		}
		return domain.GenerationResult{
			RunID:    runID,
			Status:   domain.StatusFailed,
			Failures: failures,
			Err:      fmt.Errorf("all sources failed: %w", errors.Join(errs...)),
		}
	}

	// Deduplicating.
	papers = dedupe.Merge(papers)
	log.Debug("deduplicated", "papers", len(papers))

	if cfg.ExcludeSeen && g.memory != nil {
		papers = g.filterSeen(ctx, papers, log)
	}

	totalFetched := len(papers)
	if totalFetched == 0 {
		// No new papers is a valid outcome, not a failure. Nothing is
		// persisted for an empty day.
		log.Info("no papers to rank, completing with empty digest")
		return domain.GenerationResult{
			RunID:    runID,
			Status:   statusFor(failures),
			Digest:   g.buildDigest(dateKey, cfg, 0, nil),
			Failures: failures,
		}
	}

	// Ranking.
	ranked, rankFailures := g.ranker.Rank(ctx, papers, cfg.Interests)
	failures = append(failures, rankFailures...)
	if len(ranked) == 0 {
		errs := make([]error, 0, len(rankFailures))
		for _, f := range rankFailures {
			errs = append(errs, errors.New(f.Err))
		}
		return domain.GenerationResult{
			RunID:    runID,
			Status:   domain.StatusFailed,
			Failures: failures,
			Err:      fmt.Errorf("ranking produced no papers: %w", errors.Join(errs...)),
		}
	}

	// Boosting happens before selection so the score ordering contract of
	// the digest still holds.
	applyQualityBoost(ranked)
	applyAuthorBoost(ranked, cfg.PriorityAuthors, cfg.AuthorBoost)

	// Selecting.
	selected := selectTop(ranked, cfg.TopN, cfg.MaxPapers)
	log.Debug("selected papers", "ranked", len(ranked), "selected", len(selected))

	// Persisting.
	digest := g.buildDigest(dateKey, cfg, totalFetched, selected)
	stored, err := g.store.Save(ctx, digest, opts.Overwrite)
	if err != nil {
		return failed(runID, err)
	}

	if g.memory != nil {
		ids := make([]string, 0, len(stored.Papers))
		for _, p := range stored.Papers {
			ids = append(ids, dedupe.NormalizeID(p.ID))
		}
		if err := g.memory.Record(ctx, ids); err != nil {
			log.Warn("cannot record papers in memory", "error", err)
		}
	}

	result := domain.GenerationResult{
		RunID:    runID,
		Status:   statusFor(failures),
		Digest:   stored,
		Failures: failures,
	}
	log.Info("digest generated", "status", string(result.Status), "papers", len(stored.Papers), "failures", len(failures))
	return result
}

// existingDigest returns the stored digest for the date, or nil when absent.
func (g *Generator) existingDigest(ctx context.Context, dateKey string) (*domain.Digest, error) {
	exists, err := g.store.Exists(ctx, dateKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return g.store.Get(ctx, dateKey)
}

type fetchResult struct {
	name   string
	papers []domain.Paper
	err    error
}

// fetchAll fans out to every configured source concurrently and joins the
// results in configuration order, so the first-wins dedupe tie-break stays
// deterministic. A failing source never aborts the fetch.
func (g *Generator) fetchAll(ctx context.Context, cfg config.DigestConfig, day time.Time, log *slog.Logger) ([]domain.Paper, []domain.Failure) {
	req := source.Request{
		Day:        day,
		Interests:  cfg.Interests,
		Categories: cfg.Categories,
		MaxResults: cfg.MaxPapers,
	}

	results := make([]fetchResult, len(cfg.Sources))
	var wg sync.WaitGroup
	for i, name := range cfg.Sources {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			src, err := g.registry.Resolve(name)
			if err != nil {
				results[i] = fetchResult{name: name, err: err}
				return
			}
			papers, err := src.Fetch(ctx, req)
			results[i] = fetchResult{name: name, papers: papers, err: err}
		}(i, name)
	}
	wg.Wait()

	var papers []domain.Paper
	var failures []domain.Failure
	for _, res := range results {
		if res.err != nil {
			srcErr := &domain.SourceFetchError{Source: res.name, Err: res.err}
			log.Warn("source fetch failed", "source", res.name, "error", res.err)
			failures = append(failures, domain.Failure{
				Stage:   domain.StageFetch,
				Subject: res.name,
				Err:     srcErr.Error(),
			})
			continue
		}
		log.Debug("source fetched", "source", res.name, "papers", len(res.papers))
		papers = append(papers, res.papers...)
	}
	return papers, failures
}

// filterSeen drops papers already recorded in memory. A memory lookup
// failure degrades to no filtering rather than aborting the run.
func (g *Generator) filterSeen(ctx context.Context, papers []domain.Paper, log *slog.Logger) []domain.Paper {
	ids := make([]string, len(papers))
	for i, p := range papers {
		ids[i] = dedupe.NormalizeID(p.ID)
	}
	seen, err := g.memory.Seen(ctx, ids)
	if err != nil {
		log.Warn("cannot check paper memory, skipping seen filter", "error", err)
		return papers
	}

	unseen := papers[:0]
	for i, p := range papers {
		if !seen[ids[i]] {
			unseen = append(unseen, p)
		}
	}
	log.Debug("filtered seen papers", "before", len(papers), "after", len(unseen))
	return unseen
}

// selectTop sorts by score descending with a stable tie-break by published
// date descending then identifier ascending, and truncates the result to
// the smaller of topN and maxPapers.
func selectTop(ranked []domain.RankedPaper, topN, maxPapers int) []domain.RankedPaper {
	out := append([]domain.RankedPaper(nil), ranked...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		if !out[i].Published.Equal(out[j].Published) {
			return out[i].Published.After(out[j].Published)
		}
		return out[i].ID < out[j].ID
	})

	limit := topN
	if maxPapers < limit {
		limit = maxPapers
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (g *Generator) buildDigest(dateKey string, cfg config.DigestConfig, totalFetched int, papers []domain.RankedPaper) *domain.Digest {
	if papers == nil {
		papers = []domain.RankedPaper{}
	}
	return &domain.Digest{
		Date:               dateKey,
		GeneratedAt:        time.Now().UTC(),
		Categories:         append([]string(nil), cfg.Categories...),
		Interests:          cfg.Interests,
		TotalPapersFetched: totalFetched,
		Papers:             papers,
	}
}

func statusFor(failures []domain.Failure) domain.GenerationStatus {
	if len(failures) > 0 {
		return domain.StatusPartialFailure
	}
	return domain.StatusCompleted
}

func failed(runID string, err error) domain.GenerationResult {
	return domain.GenerationResult{RunID: runID, Status: domain.StatusFailed, Err: err}
}
