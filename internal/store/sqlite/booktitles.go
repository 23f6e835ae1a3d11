package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/seforimapp/seforim-server/internal/domain"
	"github.com/seforimapp/seforim-server/internal/hebrew"
)

// InsertBookTitleTerm inserts a title term and mirrors it into the FTS
// table. Insert-only.
func (t *Tx) InsertBookTitleTerm(ctx context.Context, term *domain.BookTitleTerm) error {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO book_title_term (book_id, term, display_title, category_id)
		VALUES (?, ?, ?, ?)`,
		term.BookID, term.Term, term.DisplayTitle, term.CategoryID)
	if err != nil {
		return integrityf(err, "insert title term %q", term.Term)
	}

	rowid, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx,
		`INSERT INTO book_title_fts (rowid, term) VALUES (?, ?)`, rowid, term.Term); err != nil {
		return fmt.Errorf("mirror title term %q into fts: %w", term.Term, err)
	}
	return nil
}

// SearchBookTitlePrefix returns up to limit distinct book ids whose title
// terms match every normalized query token as a prefix, in first-match
// order.
func (s *Store) SearchBookTitlePrefix(ctx context.Context, query string, limit int) ([]int64, error) {
	tokens := strings.Fields(hebrew.Normalize(query))
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	// fts5 prefix syntax: each token becomes "tok"* and the implicit AND
	// between terms gives the conjunction.
	var match strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			match.WriteByte(' ')
		}
		match.WriteByte('"')
		match.WriteString(strings.ReplaceAll(tok, `"`, `""`))
		match.WriteString(`"*`)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT bt.book_id FROM book_title_fts f
		JOIN book_title_term bt ON bt.rowid = f.rowid
		WHERE book_title_fts MATCH ?
		ORDER BY f.rowid`, match.String())
	if err != nil {
		return nil, fmt.Errorf("title prefix search %q: %w", query, err)
	}
	defer rows.Close()

	seen := make(map[int64]bool)
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) == limit {
			break
		}
	}
	return ids, rows.Err()
}

// GetBookTitleTerms returns the stored title terms for a book.
func (s *Store) GetBookTitleTerms(ctx context.Context, bookID int64) ([]*domain.BookTitleTerm, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT book_id, term, display_title, category_id
		FROM book_title_term WHERE book_id = ? ORDER BY rowid`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []*domain.BookTitleTerm
	for rows.Next() {
		var term domain.BookTitleTerm
		if err := rows.Scan(&term.BookID, &term.Term, &term.DisplayTitle, &term.CategoryID); err != nil {
			return nil, err
		}
		terms = append(terms, &term)
	}
	return terms, rows.Err()
}
