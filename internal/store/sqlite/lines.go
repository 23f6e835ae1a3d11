package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seforimapp/seforim-server/internal/domain"
)

const lineColumns = `id, book_id, line_index, content, he_ref, ref, toc_entry_id`

func scanLine(scanner interface{ Scan(dest ...any) error }) (*domain.Line, error) {
	var l domain.Line
	var heRef, ref sql.NullString
	var tocEntry sql.NullInt64
	if err := scanner.Scan(&l.ID, &l.BookID, &l.LineIndex, &l.Content, &heRef, &ref, &tocEntry); err != nil {
		return nil, err
	}
	l.HeRef = heRef.String
	l.Ref = ref.String
	l.TocEntryID = tocEntry.Int64
	return &l, nil
}

// InsertLine inserts one line. Lines are insert-only during build; the
// (book_id, line_index) uniqueness constraint catches duplicates.
func (t *Tx) InsertLine(ctx context.Context, l *domain.Line) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO line (book_id, line_index, content, he_ref, ref, toc_entry_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.BookID, l.LineIndex, l.Content, nullString(l.HeRef), nullString(l.Ref),
		nullInt64(l.TocEntryID),
	)
	if err != nil {
		return 0, integrityf(err, "insert line %d of book %d", l.LineIndex, l.BookID)
	}
	return res.LastInsertId()
}

// UpdateLineTocEntry sets the TOC entry covering a line; the only mutation
// lines receive after insertion.
func (t *Tx) UpdateLineTocEntry(ctx context.Context, lineID, tocEntryID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE line SET toc_entry_id = ? WHERE id = ?`, tocEntryID, lineID)
	return err
}

// GetLine returns one line by id, or nil when absent.
func (s *Store) GetLine(ctx context.Context, id int64) (*domain.Line, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+lineColumns+` FROM line WHERE id = ?`, id)
	l, err := scanLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

// GetLinesForBook returns every line of a book in line-index order.
func (s *Store) GetLinesForBook(ctx context.Context, bookID int64) ([]*domain.Line, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+lineColumns+` FROM line WHERE book_id = ? ORDER BY line_index`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLines(rows)
}

// LinesAround returns up to window lines on each side of the given line
// within the same book, in line-index order, including the line itself.
// The query engine's snippet provider uses this to widen short lines.
func (s *Store) LinesAround(ctx context.Context, lineID int64, window int) ([]*domain.Line, error) {
	center, err := s.GetLine(ctx, lineID)
	if err != nil || center == nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+lineColumns+` FROM line
		WHERE book_id = ? AND line_index BETWEEN ? AND ?
		ORDER BY line_index`,
		center.BookID, center.LineIndex-window, center.LineIndex+window)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLines(rows)
}

// CountLines returns the number of lines stored for a book.
func (s *Store) CountLines(ctx context.Context, bookID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM line WHERE book_id = ?`, bookID).Scan(&n)
	return n, err
}

func collectLines(rows *sql.Rows) ([]*domain.Line, error) {
	var lines []*domain.Line
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
