package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"paperdigest/internal/ports"
	"paperdigest/pkg/logger"
)

const memorySchema = `CREATE TABLE IF NOT EXISTS seen_papers (
	paper_id   TEXT PRIMARY KEY,
	recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// MemoryRepo tracks which papers already appeared in a digest, backed by an
// embedded SQLite database.
type MemoryRepo struct {
	db *sql.DB
}

var _ ports.PaperMemory = (*MemoryRepo)(nil)

// OpenMemoryRepo opens (or creates) the database and ensures the schema.
func OpenMemoryRepo(path string) (*MemoryRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	if _, err := db.Exec(memorySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init memory schema: %w", err)
	}
	logger.New("storage.memory").Printf("memory db ready at %s", path)
	return &MemoryRepo{db: db}, nil
}

// Close releases the underlying database handle.
func (r *MemoryRepo) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Seen returns a map with the IDs that are already recorded.
func (r *MemoryRepo) Seen(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool, len(ids))
	if r.db == nil || len(ids) == 0 {
		return result, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query, queryArgs, err := sq.Select("paper_id").
		From("seen_papers").
		Where(sq.Eq{"paper_id": args}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build seen query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("query seen: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		result[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return result, nil
}

// Record marks the papers as seen. Already-recorded IDs are ignored.
func (r *MemoryRepo) Record(ctx context.Context, ids []string) error {
	if r.db == nil || len(ids) == 0 {
		return nil
	}

	builder := sq.Insert("seen_papers").
		Columns("paper_id").
		Suffix("ON CONFLICT (paper_id) DO NOTHING")
	for _, id := range ids {
		builder = builder.Values(id)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build record query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("record seen: %w", err)
	}
	return nil
}
