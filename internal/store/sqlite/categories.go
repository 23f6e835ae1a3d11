package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seforimapp/seforim-server/internal/domain"
)

// InsertCategory inserts a category, idempotent on the
// (parentId, title, level, order) surrogate key: reinserting an existing
// category returns the existing id.
func (t *Tx) InsertCategory(ctx context.Context, c *domain.Category) (int64, error) {
	var existing int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM category
		 WHERE parent_id IS ? AND title = ? AND level = ? AND sort_order = ?`,
		nullInt64(c.ParentID), c.Title, c.Level, c.Order).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("select category %q: %w", c.Title, err)
	}

	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO category (parent_id, title, level, sort_order) VALUES (?, ?, ?, ?)`,
		nullInt64(c.ParentID), c.Title, c.Level, c.Order)
	if err != nil {
		return 0, integrityf(err, "insert category %q under %d", c.Title, c.ParentID)
	}
	return res.LastInsertId()
}

// scanCategory scans one category row.
func scanCategory(scanner interface{ Scan(dest ...any) error }) (*domain.Category, error) {
	var c domain.Category
	var parent sql.NullInt64
	if err := scanner.Scan(&c.ID, &parent, &c.Title, &c.Level, &c.Order); err != nil {
		return nil, err
	}
	c.ParentID = parent.Int64
	return &c, nil
}

const categoryColumns = `id, parent_id, title, level, sort_order`

// GetCategory returns one category by id.
func (s *Store) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM category WHERE id = ?`, id)
	return scanCategory(row)
}

// ListCategories returns the whole category forest ordered by
// (level, sort_order, title), which is the order the catalog builder walks.
func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM category ORDER BY level, sort_order, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}
