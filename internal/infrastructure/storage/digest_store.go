// Package storage owns the persisted digest layout and the paper memory.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"paperdigest/internal/domain"
	"paperdigest/internal/ports"
)

// ErrNotFound is returned when no digest exists for the requested date.
var ErrNotFound = errors.New("digest not found")

var dateKeyExpr = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// DigestStore persists digests as one JSON file per calendar date.
// Writes go to a temp file in the same directory and are published with an
// atomic rename, so readers never observe a partial digest.
type DigestStore struct {
	dir    string
	logger *slog.Logger
}

var _ ports.DigestStore = (*DigestStore)(nil)

// NewDigestStore creates the storage directory if needed.
func NewDigestStore(dir string, logger *slog.Logger) (*DigestStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &domain.StorageError{Op: "init", Err: err}
	}
	return &DigestStore{dir: dir, logger: logger}, nil
}

// Save writes the digest keyed by its date. When a digest already exists
// and overwrite is false the stored digest is returned and nothing is
// written.
func (s *DigestStore) Save(ctx context.Context, digest *domain.Digest, overwrite bool) (*domain.Digest, error) {
	if digest == nil || digest.Date == "" {
		return nil, &domain.StorageError{Op: "save", Err: errors.New("digest must have a date")}
	}
	if !dateKeyExpr.MatchString(digest.Date) {
		return nil, &domain.StorageError{Op: "save", Err: fmt.Errorf("invalid date key %q", digest.Date)}
	}

	if !overwrite {
		existing, err := s.Get(ctx, digest.Date)
		if err == nil {
			s.debug("digest already stored, keeping existing", "date", digest.Date)
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return nil, &domain.StorageError{Op: "save", Err: err}
	}

	tmp, err := os.CreateTemp(s.dir, "."+digest.Date+"-*.tmp")
	if err != nil {
		return nil, &domain.StorageError{Op: "save", Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, &domain.StorageError{Op: "save", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return nil, &domain.StorageError{Op: "save", Err: err}
	}
	if err := os.Rename(tmpName, s.path(digest.Date)); err != nil {
		return nil, &domain.StorageError{Op: "save", Err: err}
	}

	s.debug("digest saved", "date", digest.Date, "papers", len(digest.Papers))
	return digest, nil
}

// Get loads the digest for a date, or ErrNotFound.
func (s *DigestStore) Get(_ context.Context, date string) (*domain.Digest, error) {
	data, err := os.ReadFile(s.path(date))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", date, ErrNotFound)
		}
		return nil, &domain.StorageError{Op: "get", Err: err}
	}

	var digest domain.Digest
	if err := json.Unmarshal(data, &digest); err != nil {
		return nil, &domain.StorageError{Op: "get", Err: err}
	}
	return &digest, nil
}

// Latest returns the most recent stored digest, or ErrNotFound when the
// store is empty.
func (s *DigestStore) Latest(ctx context.Context) (*domain.Digest, error) {
	dates, err := s.List(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, dates[0])
}

// Exists reports whether a digest is stored for the date.
func (s *DigestStore) Exists(_ context.Context, date string) (bool, error) {
	_, err := os.Stat(s.path(date))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, &domain.StorageError{Op: "exists", Err: err}
}

// List returns available digest dates, most recent first, bounded by limit.
func (s *DigestStore) List(_ context.Context, limit int) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &domain.StorageError{Op: "list", Err: err}
	}

	dates := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		date := strings.TrimSuffix(name, ".json")
		if dateKeyExpr.MatchString(date) {
			dates = append(dates, date)
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

// Delete removes the digest for a date; it reports whether one existed.
func (s *DigestStore) Delete(_ context.Context, date string) (bool, error) {
	err := os.Remove(s.path(date))
	if err == nil {
		s.debug("digest deleted", "date", date)
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, &domain.StorageError{Op: "delete", Err: err}
}

func (s *DigestStore) path(date string) string {
	return filepath.Join(s.dir, date+".json")
}

func (s *DigestStore) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
