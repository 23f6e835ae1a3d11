package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/seforimapp/seforim-server/internal/citation"
	"github.com/seforimapp/seforim-server/internal/domain"
	"github.com/seforimapp/seforim-server/internal/store/sqlite"
)

// Resolver turns CSV citation rows into bidirectional link pairs against
// the corpus ingested in this run. Per-row failures are counted, never
// aborting the batch.
type Resolver struct {
	corpus     *Corpus
	store      *sqlite.Store
	priorities *Priorities
	logger     *slog.Logger
	batchSize  int
}

// NewResolver creates a resolver over a freshly written corpus.
func NewResolver(corpus *Corpus, store *sqlite.Store, priorities *Priorities, logger *slog.Logger, batchSize int) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if priorities == nil {
		priorities = &Priorities{ranks: map[string]int{}}
	}
	if batchSize <= 0 {
		batchSize = 2000
	}
	return &Resolver{
		corpus:     corpus,
		store:      store,
		priorities: priorities,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// endpoint is one resolved side of a CSV row.
type endpoint struct {
	book   *WrittenBook
	lineID int64
}

// linkPair is a fully oriented bidirectional pair ready for insertion.
type linkPair struct {
	forward domain.Link
	reverse domain.Link
}

// ResolveFiles resolves every CSV file, parallelized per file, while a
// single writer serializes the inserts. Returns (resolved, unresolved) row
// counts.
func (r *Resolver) ResolveFiles(ctx context.Context, csvPaths []string) (int, int, error) {
	pairs := make(chan linkPair, 256)

	var resolved, unresolved atomicCounter

	g, gctx := errgroup.WithContext(ctx)
	var producers sync.WaitGroup
	for _, path := range csvPaths {
		producers.Add(1)
		g.Go(func() error {
			defer producers.Done()
			return r.resolveFile(gctx, path, pairs, &resolved, &unresolved)
		})
	}
	go func() {
		producers.Wait()
		close(pairs)
	}()

	writerErr := make(chan error, 1)
	go func() {
		defer close(writerErr)
		bw := r.store.NewBatchWriter(r.batchSize)
		for pair := range pairs {
			if err := bw.AddLinkPair(ctx, &pair.forward, &pair.reverse); err != nil {
				writerErr <- err
				for range pairs {
				}
				return
			}
		}
		if err := bw.Flush(ctx); err != nil {
			writerErr <- err
		}
	}()

	prepErr := g.Wait()
	werr := <-writerErr
	if prepErr != nil {
		return resolved.value(), unresolved.value(), prepErr
	}
	if werr != nil {
		return resolved.value(), unresolved.value(), werr
	}
	return resolved.value(), unresolved.value(), nil
}

// resolveFile streams one CSV file of (citation1, citation2, type) rows.
func (r *Resolver) resolveFile(ctx context.Context, path string, pairs chan<- linkPair, resolved, unresolved *atomicCounter) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open links csv %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.logger.Warn("bad csv row", "file", path, "error", err)
			unresolved.inc()
			continue
		}
		// Tolerate a header row.
		if first {
			first = false
			if len(record) > 0 && citation.Canonical(record[0]) == "citation1" {
				continue
			}
		}
		if len(record) < 3 {
			unresolved.inc()
			continue
		}

		pair, ok := r.resolveRow(record[0], record[1], record[2])
		if !ok {
			unresolved.inc()
			continue
		}

		select {
		case pairs <- pair:
			resolved.inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// resolveRow resolves both citations and orients the pair.
func (r *Resolver) resolveRow(citationA, citationB, connectionType string) (linkPair, bool) {
	baseType, ok := domain.ParseConnectionType(connectionType)
	if !ok {
		r.logger.Debug("unknown connection type", "type", connectionType)
		return linkPair{}, false
	}

	a, ok := r.resolveCitation(citationA)
	if !ok {
		return linkPair{}, false
	}
	b, ok := r.resolveCitation(citationB)
	if !ok {
		return linkPair{}, false
	}

	return r.orient(a, b, baseType), true
}

// resolveCitation finds the book by its parsed title (following aliases)
// and resolves the full string inside that book's lookup map.
func (r *Resolver) resolveCitation(raw string) (endpoint, bool) {
	parsed, ok := citation.Parse(raw)
	if !ok {
		return endpoint{}, false
	}
	book := r.corpus.ByTitle(citation.Canonical(parsed.Book))
	if book == nil {
		return endpoint{}, false
	}
	entry, ok := book.RefMap.Resolve(raw)
	if !ok {
		return endpoint{}, false
	}
	lineID := book.LineIDAt(entry.LineIndex)
	if lineID == 0 {
		return endpoint{}, false
	}
	return endpoint{book: book, lineID: lineID}, true
}

// orient applies the directionality rule: the primary endpoint is the base
// book, or the base book with the lower (categoryLevel, priorityRank)
// tuple when both are base. The forward edge runs from the non-primary to
// the primary carrying the base type; the reverse carries SOURCE for
// commentary and the complementary type otherwise.
func (r *Resolver) orient(a, b endpoint, baseType domain.ConnectionType) linkPair {
	primary, secondary := b, a
	switch {
	case a.book.IsBaseBook && b.book.IsBaseBook:
		if r.less(a.book, b.book) {
			primary, secondary = a, b
		}
	case a.book.IsBaseBook:
		primary, secondary = a, b
	case b.book.IsBaseBook:
		primary, secondary = b, a
	}

	forward := domain.Link{
		SourceBookID:   secondary.book.BookID,
		TargetBookID:   primary.book.BookID,
		SourceLineID:   secondary.lineID,
		TargetLineID:   primary.lineID,
		ConnectionType: baseType,
	}
	reverse := domain.Link{
		SourceBookID:   primary.book.BookID,
		TargetBookID:   secondary.book.BookID,
		SourceLineID:   primary.lineID,
		TargetLineID:   secondary.lineID,
		ConnectionType: baseType.Reverse(),
	}
	return linkPair{forward: forward, reverse: reverse}
}

// less orders two base books by (categoryLevel, priorityRank).
func (r *Resolver) less(a, b *WrittenBook) bool {
	if a.CategoryLevel != b.CategoryLevel {
		return a.CategoryLevel < b.CategoryLevel
	}
	return r.priorities.Rank(a.Title) < r.priorities.Rank(b.Title)
}

// RefreshConnectionFlags is the post-pass: recompute every book's
// has-X-connection flags and book_has_links summary from the link table.
func (r *Resolver) RefreshConnectionFlags(ctx context.Context) error {
	for _, book := range r.corpus.Books() {
		counts, err := r.store.CountLinksByType(ctx, book.BookID)
		if err != nil {
			return fmt.Errorf("count links for book %d: %w", book.BookID, err)
		}
		asSource, asTarget, err := r.store.HasLinksAs(ctx, book.BookID)
		if err != nil {
			return fmt.Errorf("link presence for book %d: %w", book.BookID, err)
		}

		err = r.store.RunInTransaction(ctx, func(tx *sqlite.Tx) error {
			if err := tx.UpdateBookConnectionFlags(ctx, book.BookID,
				counts[domain.ConnectionTargum] > 0,
				counts[domain.ConnectionReference] > 0,
				counts[domain.ConnectionCommentary] > 0,
				counts[domain.ConnectionOther] > 0,
			); err != nil {
				return err
			}
			return tx.UpsertBookHasLinks(ctx, &domain.BookHasLinks{
				BookID:         book.BookID,
				HasSourceLinks: asSource,
				HasTargetLinks: asTarget,
			})
		})
		if err != nil {
			return err
		}
	}
	return nil
}
