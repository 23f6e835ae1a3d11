package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seforimapp/seforim-server/internal/domain"
)

// InsertAltTocStructure inserts an alternative TOC structure, returning the
// existing id when the (bookId, structureKey) pair is already present.
func (t *Tx) InsertAltTocStructure(ctx context.Context, s *domain.AltTocStructure) (int64, error) {
	var existing int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM alt_toc_structure WHERE book_id = ? AND structure_key = ?`,
		s.BookID, s.StructureKey).Scan(&existing)
	switch {
	case err == nil:
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("select alt structure %q: %w", s.StructureKey, err)
	}

	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO alt_toc_structure (book_id, structure_key) VALUES (?, ?)`,
		s.BookID, s.StructureKey)
	if err != nil {
		return 0, integrityf(err, "insert alt structure %q for book %d", s.StructureKey, s.BookID)
	}
	return res.LastInsertId()
}

// InsertAltTocEntry inserts one alternative TOC entry.
func (t *Tx) InsertAltTocEntry(ctx context.Context, e *domain.AltTocEntry) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO alt_toc_entry (structure_id, book_id, parent_id, text, level, line_id, is_last_child, has_children)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.StructureID, e.BookID, nullInt64(e.ParentID), e.Text, e.Level,
		nullInt64(e.LineID), boolInt(e.IsLastChild), boolInt(e.HasChildren),
	)
	if err != nil {
		return 0, integrityf(err, "insert alt toc entry %q for book %d", e.Text, e.BookID)
	}
	return res.LastInsertId()
}

// UpdateAltTocEntryDerived sets the derived flags of an alternative entry.
func (t *Tx) UpdateAltTocEntryDerived(ctx context.Context, entryID int64, isLastChild, hasChildren bool) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE alt_toc_entry SET is_last_child = ?, has_children = ? WHERE id = ?`,
		boolInt(isLastChild), boolInt(hasChildren), entryID)
	return err
}

// InsertLineAltTocMapping records the alternative TOC entry covering a line.
func (t *Tx) InsertLineAltTocMapping(ctx context.Context, m *domain.LineAltTocMapping) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO line_alt_toc_mapping (line_id, alt_toc_entry_id) VALUES (?, ?)`,
		m.LineID, m.AltTocEntryID)
	if err != nil {
		return integrityf(err, "insert line_alt_toc %d -> %d", m.LineID, m.AltTocEntryID)
	}
	return nil
}

// GetAltTocStructures returns the alternative structures of a book.
func (s *Store) GetAltTocStructures(ctx context.Context, bookID int64) ([]*domain.AltTocStructure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, book_id, structure_key FROM alt_toc_structure WHERE book_id = ? ORDER BY id`,
		bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var structures []*domain.AltTocStructure
	for rows.Next() {
		var st domain.AltTocStructure
		if err := rows.Scan(&st.ID, &st.BookID, &st.StructureKey); err != nil {
			return nil, err
		}
		structures = append(structures, &st)
	}
	return structures, rows.Err()
}

// GetAltTocEntries returns the entries of one alternative structure in
// insertion order.
func (s *Store) GetAltTocEntries(ctx context.Context, structureID int64) ([]*domain.AltTocEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, structure_id, book_id, parent_id, text, level, line_id, is_last_child, has_children
		FROM alt_toc_entry WHERE structure_id = ? ORDER BY id`, structureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.AltTocEntry
	for rows.Next() {
		var e domain.AltTocEntry
		var parent, line sql.NullInt64
		var isLast, hasChildren int
		if err := rows.Scan(&e.ID, &e.StructureID, &e.BookID, &parent, &e.Text, &e.Level, &line, &isLast, &hasChildren); err != nil {
			return nil, err
		}
		e.ParentID = parent.Int64
		e.LineID = line.Int64
		e.IsLastChild = isLast != 0
		e.HasChildren = hasChildren != 0
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
