package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// RebuildCategoryClosure rebuilds the (ancestor, descendant, distance)
// table from scratch so that category-tree queries cost O(hits) instead of
// O(depth * tree). Runs in its own transaction.
func (s *Store) RebuildCategoryClosure(ctx context.Context) error {
	return s.RunInTransaction(ctx, func(tx *Tx) error {
		if _, err := tx.tx.ExecContext(ctx, `DELETE FROM category_closure`); err != nil {
			return fmt.Errorf("clear category closure: %w", err)
		}

		_, err := tx.tx.ExecContext(ctx, `
			WITH RECURSIVE walk(ancestor, descendant, distance) AS (
				SELECT id, id, 0 FROM category
				UNION ALL
				SELECT walk.ancestor, category.id, walk.distance + 1
				FROM walk
				JOIN category ON category.parent_id = walk.descendant
			)
			INSERT INTO category_closure (ancestor, descendant, distance)
			SELECT ancestor, descendant, distance FROM walk`)
		if err != nil {
			return fmt.Errorf("rebuild category closure: %w", err)
		}
		return nil
	})
}

// ClosureDistance returns the stored distance between an ancestor and a
// descendant, or -1 when no path exists.
func (s *Store) ClosureDistance(ctx context.Context, ancestor, descendant int64) (int, error) {
	var d int
	err := s.db.QueryRowContext(ctx,
		`SELECT distance FROM category_closure WHERE ancestor = ? AND descendant = ?`,
		ancestor, descendant).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return d, nil
}

// AncestorCategoryIDs returns the ancestors of a category from the closure
// table, nearest first, excluding the category itself.
func (s *Store) AncestorCategoryIDs(ctx context.Context, categoryID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ancestor FROM category_closure
		WHERE descendant = ? AND distance > 0
		ORDER BY distance`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
