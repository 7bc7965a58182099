package ports

import (
	"context"
	"time"

	"paperdigest/internal/domain"
)

// DigestStore persists and retrieves digests keyed by calendar date.
// It is the sole owner of the on-disk layout.
type DigestStore interface {
	// Save writes the digest unless one already exists for its date. Without
	// overwrite the existing digest is returned unchanged and nothing is
	// written; with overwrite the stored content is replaced atomically.
	Save(ctx context.Context, digest *domain.Digest, overwrite bool) (*domain.Digest, error)
	Get(ctx context.Context, date string) (*domain.Digest, error)
	Latest(ctx context.Context) (*domain.Digest, error)
	Exists(ctx context.Context, date string) (bool, error)
	List(ctx context.Context, limit int) ([]string, error)
	Delete(ctx context.Context, date string) (bool, error)
}

// PaperMemory tracks which papers already appeared in a digest.
type PaperMemory interface {
	Seen(ctx context.Context, ids []string) (map[string]bool, error)
	Record(ctx context.Context, ids []string) error
}

// RankVerdict is the structured response expected from a ranking backend.
type RankVerdict struct {
	Score  float64
	Reason string
}

// RankingBackend submits one paper to an LLM provider for relevance scoring.
// One implementation per provider, selected by configuration.
type RankingBackend interface {
	Name() string
	Submit(ctx context.Context, paper domain.Paper, interests string) (RankVerdict, error)
}

// EmailSender delivers a rendered digest. Implementations own the transport.
type EmailSender interface {
	Send(ctx context.Context, subject, textBody, htmlBody string) error
}

// Scheduler controls when digest generation executes.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
