package sqlite

import (
	"context"
	"fmt"

	"github.com/seforimapp/seforim-server/internal/domain"
)

// InsertSource inserts a provenance label, returning the existing id when
// the name is already known.
func (t *Tx) InsertSource(ctx context.Context, name string) (int64, error) {
	return insertSource(ctx, t.tx, name)
}

func insertSource(ctx context.Context, q dbtx, name string) (int64, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO source (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return 0, fmt.Errorf("insert source %q: %w", name, err)
	}

	var id int64
	if err := q.QueryRowContext(ctx,
		`SELECT id FROM source WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select source %q: %w", name, err)
	}
	return id, nil
}

// ListSources returns every known source ordered by id.
func (s *Store) ListSources(ctx context.Context) ([]domain.Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM source ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(&src.ID, &src.Name); err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
