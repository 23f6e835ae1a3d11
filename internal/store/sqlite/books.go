package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seforimapp/seforim-server/internal/domain"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `id, category_id, source_id, title, authors, pub_places,
	pub_dates, he_short_desc, sort_order, total_lines, is_base_book,
	has_targum_connection, has_reference_connection,
	has_commentary_connection, has_other_connection, has_alt_structures`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book
	var (
		authors   string
		pubPlaces string
		pubDates  string
		heDesc    sql.NullString

		isBase, hasTargum, hasRef, hasComm, hasOther, hasAlt int
	)

	err := scanner.Scan(
		&b.ID, &b.CategoryID, &b.SourceID, &b.Title,
		&authors, &pubPlaces, &pubDates, &heDesc,
		&b.Order, &b.TotalLines,
		&isBase, &hasTargum, &hasRef, &hasComm, &hasOther, &hasAlt,
	)
	if err != nil {
		return nil, err
	}

	b.Authors = unmarshalStrings(authors)
	b.PubPlaces = unmarshalStrings(pubPlaces)
	b.PubDates = unmarshalStrings(pubDates)
	if heDesc.Valid {
		b.HeShortDesc = heDesc.String
	}
	b.IsBaseBook = isBase != 0
	b.HasTargumConnection = hasTargum != 0
	b.HasReferenceConnection = hasRef != 0
	b.HasCommentaryConnection = hasComm != 0
	b.HasOtherConnection = hasOther != 0
	b.HasAltStructures = hasAlt != 0
	return &b, nil
}

// InsertBook inserts a book. A caller-supplied positive id is honored; when
// that id already exists with a different category, the row's category is
// corrected to match the input and the id is returned unchanged.
func (t *Tx) InsertBook(ctx context.Context, b *domain.Book) (int64, error) {
	if b.ID > 0 {
		var existingCategory int64
		err := t.tx.QueryRowContext(ctx,
			`SELECT category_id FROM book WHERE id = ?`, b.ID).Scan(&existingCategory)
		switch {
		case err == nil:
			if existingCategory != b.CategoryID {
				if _, err := t.tx.ExecContext(ctx,
					`UPDATE book SET category_id = ? WHERE id = ?`, b.CategoryID, b.ID); err != nil {
					return 0, fmt.Errorf("correct book %d category: %w", b.ID, err)
				}
			}
			return b.ID, nil
		case !errors.Is(err, sql.ErrNoRows):
			return 0, fmt.Errorf("select book %d: %w", b.ID, err)
		}
	}

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO book (
			id, category_id, source_id, title, authors, pub_places,
			pub_dates, he_short_desc, sort_order, total_lines, is_base_book,
			has_targum_connection, has_reference_connection,
			has_commentary_connection, has_other_connection, has_alt_structures
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullInt64(b.ID), b.CategoryID, b.SourceID, b.Title,
		marshalStrings(b.Authors), marshalStrings(b.PubPlaces), marshalStrings(b.PubDates),
		nullString(b.HeShortDesc), b.Order, b.TotalLines, boolInt(b.IsBaseBook),
		boolInt(b.HasTargumConnection), boolInt(b.HasReferenceConnection),
		boolInt(b.HasCommentaryConnection), boolInt(b.HasOtherConnection),
		boolInt(b.HasAltStructures),
	)
	if err != nil {
		return 0, integrityf(err, "insert book %q", b.Title)
	}
	return res.LastInsertId()
}

// UpdateBookTotalLines records the final line count of a book after
// flattening.
func (t *Tx) UpdateBookTotalLines(ctx context.Context, bookID int64, totalLines int) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE book SET total_lines = ? WHERE id = ?`, totalLines, bookID)
	return err
}

// UpdateBookHasAltStructures marks a book as carrying alternative TOCs.
func (t *Tx) UpdateBookHasAltStructures(ctx context.Context, bookID int64, has bool) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE book SET has_alt_structures = ? WHERE id = ?`, boolInt(has), bookID)
	return err
}

// UpdateBookConnectionFlags refreshes the derived has-X-connection flags
// after link insertion.
func (t *Tx) UpdateBookConnectionFlags(ctx context.Context, bookID int64, hasTargum, hasReference, hasCommentary, hasOther bool) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE book SET
			has_targum_connection = ?,
			has_reference_connection = ?,
			has_commentary_connection = ?,
			has_other_connection = ?
		WHERE id = ?`,
		boolInt(hasTargum), boolInt(hasReference), boolInt(hasCommentary), boolInt(hasOther),
		bookID)
	return err
}

// GetBook returns one book by id.
func (s *Store) GetBook(ctx context.Context, id int64) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM book WHERE id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// GetBookByTitle returns the first book with the given title, or nil.
func (s *Store) GetBookByTitle(ctx context.Context, title string) (*domain.Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM book WHERE title = ? ORDER BY id LIMIT 1`, title)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// ListBooks returns every book ordered by (category_id, sort_order, title).
func (s *Store) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM book ORDER BY category_id, sort_order, title`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

// GetBooksUnderCategoryTree returns every book under the category and all
// of its descendants, resolved through the closure table in O(hits).
func (s *Store) GetBooksUnderCategoryTree(ctx context.Context, categoryID int64) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookColumns+` FROM book
		WHERE category_id IN (
			SELECT descendant FROM category_closure WHERE ancestor = ?
		)
		ORDER BY category_id, sort_order, title`, categoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBooks(rows)
}

func collectBooks(rows *sql.Rows) ([]*domain.Book, error) {
	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	return books, rows.Err()
}
