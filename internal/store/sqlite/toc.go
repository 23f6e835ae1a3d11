package sqlite

import (
	"context"
	"database/sql"

	"github.com/seforimapp/seforim-server/internal/domain"
)

const tocColumns = `id, book_id, parent_id, text, level, line_id, is_last_child, has_children`

func scanTocEntry(scanner interface{ Scan(dest ...any) error }) (*domain.TocEntry, error) {
	var e domain.TocEntry
	var parent, line sql.NullInt64
	var isLast, hasChildren int
	if err := scanner.Scan(&e.ID, &e.BookID, &parent, &e.Text, &e.Level, &line, &isLast, &hasChildren); err != nil {
		return nil, err
	}
	e.ParentID = parent.Int64
	e.LineID = line.Int64
	e.IsLastChild = isLast != 0
	e.HasChildren = hasChildren != 0
	return &e, nil
}

// InsertTocEntry inserts one TOC entry. ParentID must reference an entry of
// the same book (or be zero for a root).
func (t *Tx) InsertTocEntry(ctx context.Context, e *domain.TocEntry) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO toc_entry (book_id, parent_id, text, level, line_id, is_last_child, has_children)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.BookID, nullInt64(e.ParentID), e.Text, e.Level, nullInt64(e.LineID),
		boolInt(e.IsLastChild), boolInt(e.HasChildren),
	)
	if err != nil {
		return 0, integrityf(err, "insert toc entry %q for book %d", e.Text, e.BookID)
	}
	return res.LastInsertId()
}

// UpdateTocEntryLineID attaches a TOC entry to its line once the line id is
// known.
func (t *Tx) UpdateTocEntryLineID(ctx context.Context, entryID, lineID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE toc_entry SET line_id = ? WHERE id = ?`, lineID, entryID)
	return err
}

// UpdateTocEntryDerived sets the flags computed in the second TOC pass.
func (t *Tx) UpdateTocEntryDerived(ctx context.Context, entryID int64, isLastChild, hasChildren bool) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE toc_entry SET is_last_child = ?, has_children = ? WHERE id = ?`,
		boolInt(isLastChild), boolInt(hasChildren), entryID)
	return err
}

// InsertLineTocMapping records the TOC entry covering a content line.
func (t *Tx) InsertLineTocMapping(ctx context.Context, m *domain.LineTocMapping) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO line_toc (line_id, toc_entry_id) VALUES (?, ?)`,
		m.LineID, m.TocEntryID)
	if err != nil {
		return integrityf(err, "insert line_toc %d -> %d", m.LineID, m.TocEntryID)
	}
	return nil
}

// GetTocEntriesForBook returns the primary TOC of a book in id order, which
// is also file order because entries are insert-only.
func (s *Store) GetTocEntriesForBook(ctx context.Context, bookID int64) ([]*domain.TocEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tocColumns+` FROM toc_entry WHERE book_id = ? ORDER BY id`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.TocEntry
	for rows.Next() {
		e, err := scanTocEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetTocEntryForLine resolves the line_toc mapping for one line, or nil.
func (s *Store) GetTocEntryForLine(ctx context.Context, lineID int64) (*domain.TocEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedTocColumns("t")+` FROM toc_entry t
		JOIN line_toc m ON m.toc_entry_id = t.id
		WHERE m.line_id = ?
		LIMIT 1`, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanTocEntry(rows)
}

// prefixedTocColumns qualifies tocColumns with a table alias for joins.
func prefixedTocColumns(alias string) string {
	return alias + `.id, ` + alias + `.book_id, ` + alias + `.parent_id, ` +
		alias + `.text, ` + alias + `.level, ` + alias + `.line_id, ` +
		alias + `.is_last_child, ` + alias + `.has_children`
}
