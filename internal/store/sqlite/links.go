package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/seforimapp/seforim-server/internal/domain"
)

// InsertLink inserts one directed link. Links are never deduplicated by
// (source, target, type); callers are responsible for not creating
// duplicates.
func (t *Tx) InsertLink(ctx context.Context, l *domain.Link) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO link (source_book_id, target_book_id, source_line_id, target_line_id, connection_type_id)
		VALUES (?, ?, ?, ?, ?)`,
		l.SourceBookID, l.TargetBookID, l.SourceLineID, l.TargetLineID, int(l.ConnectionType),
	)
	if err != nil {
		return 0, integrityf(err, "insert link %d -> %d", l.SourceLineID, l.TargetLineID)
	}
	return res.LastInsertId()
}

// UpsertBookHasLinks records the per-book link presence summary.
func (t *Tx) UpsertBookHasLinks(ctx context.Context, h *domain.BookHasLinks) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO book_has_links (book_id, has_source_links, has_target_links)
		VALUES (?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE SET
			has_source_links = excluded.has_source_links,
			has_target_links = excluded.has_target_links`,
		h.BookID, boolInt(h.HasSourceLinks), boolInt(h.HasTargetLinks))
	return err
}

// CountLinksByType returns link counts per connection type over the links
// where the book appears as source or as target; the flag post-pass
// consumes this.
func (s *Store) CountLinksByType(ctx context.Context, bookID int64) (map[domain.ConnectionType]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT connection_type_id, COUNT(*) FROM link
		WHERE source_book_id = ? OR target_book_id = ?
		GROUP BY connection_type_id`, bookID, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.ConnectionType]int)
	for rows.Next() {
		var typeID, n int
		if err := rows.Scan(&typeID, &n); err != nil {
			return nil, err
		}
		counts[domain.ConnectionType(typeID)] = n
	}
	return counts, rows.Err()
}

// HasLinksAs reports whether a book appears as a link source and as a link
// target.
func (s *Store) HasLinksAs(ctx context.Context, bookID int64) (asSource, asTarget bool, err error) {
	var n int
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM link WHERE source_book_id = ?)`, bookID).Scan(&n)
	if err != nil {
		return false, false, err
	}
	asSource = n != 0

	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM link WHERE target_book_id = ?)`, bookID).Scan(&n)
	if err != nil {
		return false, false, err
	}
	return asSource, n != 0, nil
}

// GetLinksForLine returns every link whose source is the given line.
func (s *Store) GetLinksForLine(ctx context.Context, lineID int64) ([]*domain.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_book_id, target_book_id, source_line_id, target_line_id, connection_type_id
		FROM link WHERE source_line_id = ? ORDER BY id`, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLinks(rows)
}

// GetLinksBetweenBooks returns every link from one book to another.
func (s *Store) GetLinksBetweenBooks(ctx context.Context, sourceBookID, targetBookID int64) ([]*domain.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_book_id, target_book_id, source_line_id, target_line_id, connection_type_id
		FROM link WHERE source_book_id = ? AND target_book_id = ? ORDER BY id`,
		sourceBookID, targetBookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLinks(rows)
}

// CountLinks returns the total number of links of one connection type.
func (s *Store) CountLinks(ctx context.Context, ct domain.ConnectionType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM link WHERE connection_type_id = ?`, int(ct)).Scan(&n)
	return n, err
}

// GetBookHasLinks returns the stored per-book link summary, or nil.
func (s *Store) GetBookHasLinks(ctx context.Context, bookID int64) (*domain.BookHasLinks, error) {
	var h domain.BookHasLinks
	var src, tgt int
	err := s.db.QueryRowContext(ctx,
		`SELECT book_id, has_source_links, has_target_links FROM book_has_links WHERE book_id = ?`,
		bookID).Scan(&h.BookID, &src, &tgt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	h.HasSourceLinks = src != 0
	h.HasTargetLinks = tgt != 0
	return &h, nil
}

func collectLinks(rows *sql.Rows) ([]*domain.Link, error) {
	var links []*domain.Link
	for rows.Next() {
		var l domain.Link
		var typeID int
		if err := rows.Scan(&l.ID, &l.SourceBookID, &l.TargetBookID, &l.SourceLineID, &l.TargetLineID, &typeID); err != nil {
			return nil, err
		}
		l.ConnectionType = domain.ConnectionType(typeID)
		links = append(links, &l)
	}
	return links, rows.Err()
}
