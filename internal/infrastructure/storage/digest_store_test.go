package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"paperdigest/internal/domain"
)

func newTestStore(t *testing.T) *DigestStore {
	t.Helper()
	store, err := NewDigestStore(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewDigestStore: %v", err)
	}
	return store
}

func sampleDigest(date string) *domain.Digest {
	return &domain.Digest{
		Date:        date,
		GeneratedAt: time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC),
		Interests:   "reinforcement learning",
		Categories:  []string{"cs.AI"},
		Papers: []domain.RankedPaper{
			{
				Paper:           domain.Paper{ID: "2401.00001", Title: "a paper"},
				RelevanceScore:  8.5,
				RelevanceReason: "matches interests",
			},
		},
		TotalPapersFetched: 1,
	}
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.Save(ctx, sampleDigest("2025-06-02"), false)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := store.Get(ctx, "2025-06-02")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Date != saved.Date || len(got.Papers) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.Papers[0].RelevanceScore != 8.5 || got.Papers[0].ID != "2401.00001" {
		t.Errorf("paper fields lost in round trip: %+v", got.Papers[0])
	}
}

func TestSaveSecondTimeKeepsExisting(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	first := sampleDigest("2025-06-02")
	if _, err := store.Save(ctx, first, false); err != nil {
		t.Fatalf("first Save: %v", err)
	}

	replacement := sampleDigest("2025-06-02")
	replacement.Interests = "something else"
	got, err := store.Save(ctx, replacement, false)
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}
	if got.Interests != first.Interests {
		t.Errorf("second save must return the stored digest, got interests %q", got.Interests)
	}

	stored, err := store.Get(ctx, "2025-06-02")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Interests != first.Interests {
		t.Error("stored digest must be unchanged without overwrite")
	}
}

func TestSaveOverwriteReplaces(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, sampleDigest("2025-06-02"), false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	replacement := sampleDigest("2025-06-02")
	replacement.Interests = "updated interests"
	if _, err := store.Save(ctx, replacement, true); err != nil {
		t.Fatalf("overwrite Save: %v", err)
	}

	stored, err := store.Get(ctx, "2025-06-02")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Interests != "updated interests" {
		t.Errorf("overwrite did not replace content, got %q", stored.Interests)
	}
}

func TestSaveRejectsInvalidDate(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	for _, date := range []string{"", "2025-6-2", "not-a-date", "2025-06-02.json"} {
		if _, err := store.Save(context.Background(), sampleDigest(date), false); err == nil {
			t.Errorf("Save accepted invalid date %q", date)
		}
	}
}

func TestGetMissingReturnsErrNotFound(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	_, err := store.Get(context.Background(), "2025-01-01")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListOrderingAndLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	for _, date := range []string{"2025-06-01", "2025-06-03", "2025-06-02"} {
		if _, err := store.Save(ctx, sampleDigest(date), false); err != nil {
			t.Fatalf("Save %s: %v", date, err)
		}
	}

	dates, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"2025-06-03", "2025-06-02", "2025-06-01"}
	if len(dates) != len(want) {
		t.Fatalf("List returned %v", dates)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("List order = %v, want %v", dates, want)
		}
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List limited: %v", err)
	}
	if len(limited) != 2 || limited[0] != "2025-06-03" {
		t.Fatalf("limited List = %v", limited)
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewDigestStore(dir, nil)
	if err != nil {
		t.Fatalf("NewDigestStore: %v", err)
	}
	if _, err := store.Save(context.Background(), sampleDigest("2025-06-02"), false); err != nil {
		t.Fatalf("Save: %v", err)
	}
	for _, name := range []string{"notes.txt", "backup.json", ".2025-06-02-123.tmp"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	dates, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dates) != 1 || dates[0] != "2025-06-02" {
		t.Fatalf("List = %v, want only the digest date", dates)
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty store Latest err = %v, want ErrNotFound", err)
	}

	for _, date := range []string{"2025-06-01", "2025-06-02"} {
		if _, err := store.Save(ctx, sampleDigest(date), false); err != nil {
			t.Fatalf("Save %s: %v", date, err)
		}
	}
	latest, err := store.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Date != "2025-06-02" {
		t.Errorf("Latest date = %q, want 2025-06-02", latest.Date)
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Save(ctx, sampleDigest("2025-06-02"), false); err != nil {
		t.Fatalf("Save: %v", err)
	}

	removed, err := store.Delete(ctx, "2025-06-02")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !removed {
		t.Error("Delete must report true for an existing digest")
	}
	if exists, _ := store.Exists(ctx, "2025-06-02"); exists {
		t.Error("digest still exists after Delete")
	}

	removed, err = store.Delete(ctx, "2025-06-02")
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if removed {
		t.Error("Delete must report false for a missing digest")
	}
}
