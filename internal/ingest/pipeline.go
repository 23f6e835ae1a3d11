package ingest

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/seforimapp/seforim-server/internal/domain"
	"github.com/seforimapp/seforim-server/internal/errors"
	"github.com/seforimapp/seforim-server/internal/hebrew"
	"github.com/seforimapp/seforim-server/internal/store/sqlite"
)

// PrepareFunc produces one book payload off the writer thread. Returning a
// schema error skips the book and counts it; anything else aborts the run.
type PrepareFunc func(ctx context.Context) (*BookPayload, error)

// Pipeline fans book preparation out over a worker pool and funnels the
// payloads through a bounded queue into a single serialized store writer.
type Pipeline struct {
	store   Store
	logger  *slog.Logger
	workers int
}

// Store is the narrow write surface the pipeline needs; *sqlite.Store
// satisfies it.
type Store interface {
	RunInTransaction(ctx context.Context, fn func(tx *sqlite.Tx) error) error
}

// NewPipeline creates a pipeline writing through the given store. workers
// <= 0 selects one worker per CPU.
func NewPipeline(store Store, logger *slog.Logger, workers int) *Pipeline {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{store: store, logger: logger, workers: workers}
}

// Run prepares every book in parallel and writes them serially. The
// returned corpus feeds the link resolver.
func (p *Pipeline) Run(ctx context.Context, tasks []PrepareFunc) (*Corpus, domain.BuildSummary, error) {
	corpus := NewCorpus()
	var summary domain.BuildSummary

	// The bounded queue gives backpressure: preparation blocks once the
	// writer falls this far behind.
	payloads := make(chan *BookPayload, p.workers)

	g, gctx := errgroup.WithContext(ctx)

	// Producers.
	taskCh := make(chan PrepareFunc)
	var skipped atomicCounter
	for range p.workers {
		g.Go(func() error {
			for task := range taskCh {
				payload, err := task(gctx)
				if err != nil {
					if errors.Is(err, errors.ErrSchema) {
						p.logger.Warn("skipping book with bad schema", "error", err)
						skipped.inc()
						continue
					}
					return err
				}
				select {
				case payloads <- payload:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	// Single writer. The payload channel is closed once every producer
	// is done, via the closer goroutine below.
	writerDone := make(chan error, 1)
	go func() {
		defer close(writerDone)
		for payload := range payloads {
			written, err := p.writeBook(ctx, payload)
			if err != nil {
				writerDone <- err
				// Drain so producers blocked on the queue can observe
				// group cancellation instead of deadlocking.
				for range payloads {
				}
				return
			}
			corpus.Add(written)
			for _, alias := range payload.Aliases {
				corpus.RegisterAlias(alias, written.Title)
			}
			summary.BooksProcessed++
		}
	}()

	prepErr := g.Wait()
	close(payloads)
	writeErr := <-writerDone

	summary.BooksSkipped = skipped.value()
	if prepErr != nil {
		return corpus, summary, prepErr
	}
	if writeErr != nil {
		return corpus, summary, writeErr
	}
	return corpus, summary, nil
}

// writeBook persists one payload in a single transaction: category chain,
// book row, TOC entries, lines, mappings, alt structures, and title terms.
func (p *Pipeline) writeBook(ctx context.Context, payload *BookPayload) (*WrittenBook, error) {
	written := &WrittenBook{
		Title:         payload.Book.Title,
		RefMap:        payload.Flatten.RefMap,
		IsBaseBook:    payload.Book.IsBaseBook,
		CategoryLevel: len(payload.CategoryPath) - 1,
	}

	err := p.runInTransaction(ctx, func(tx *sqlite.Tx) error {
		sourceID, err := tx.InsertSource(ctx, payload.SourceName)
		if err != nil {
			return err
		}

		var parentID int64
		for level, draft := range payload.CategoryPath {
			parentID, err = tx.InsertCategory(ctx, &domain.Category{
				ParentID: parentID,
				Title:    draft.Title,
				Level:    level,
				Order:    draft.Order,
			})
			if err != nil {
				return err
			}
		}

		book := payload.Book
		book.CategoryID = parentID
		book.SourceID = sourceID
		book.TotalLines = len(payload.Flatten.Lines)
		book.HasAltStructures = len(payload.AltStructures) > 0
		bookID, err := tx.InsertBook(ctx, &book)
		if err != nil {
			return err
		}
		written.BookID = bookID

		// TOC entries first so lines can carry their covering entry id.
		tocIDs := make([]int64, len(payload.Flatten.Tocs))
		for i, draft := range payload.Flatten.Tocs {
			entry := &domain.TocEntry{
				BookID:      bookID,
				Text:        draft.Text,
				Level:       draft.Level,
				IsLastChild: draft.IsLastChild,
				HasChildren: draft.HasChildren,
			}
			if draft.Parent >= 0 {
				entry.ParentID = tocIDs[draft.Parent]
			}
			if tocIDs[i], err = tx.InsertTocEntry(ctx, entry); err != nil {
				return err
			}
		}

		written.LineIDs = make([]int64, len(payload.Flatten.Lines))
		for i, draft := range payload.Flatten.Lines {
			line := &domain.Line{
				BookID:    bookID,
				LineIndex: i,
				Content:   draft.Content,
				Ref:       draft.Ref,
				HeRef:     draft.HeRef,
			}
			if draft.TocIndex >= 0 && draft.TocIndex < len(tocIDs) {
				line.TocEntryID = tocIDs[draft.TocIndex]
			}
			if written.LineIDs[i], err = tx.InsertLine(ctx, line); err != nil {
				return err
			}
		}

		// Anchor TOC entries to their heading lines, then record the
		// line -> entry mapping for content lines.
		for i, draft := range payload.Flatten.Tocs {
			if draft.LineIndex >= 0 {
				if err := tx.UpdateTocEntryLineID(ctx, tocIDs[i], written.LineIDs[draft.LineIndex]); err != nil {
					return err
				}
			}
		}
		for i, draft := range payload.Flatten.Lines {
			if draft.Ref == "" || draft.TocIndex < 0 {
				continue
			}
			if err := tx.InsertLineTocMapping(ctx, &domain.LineTocMapping{
				LineID:     written.LineIDs[i],
				TocEntryID: tocIDs[draft.TocIndex],
			}); err != nil {
				return err
			}
		}

		if err := p.writeAltStructures(ctx, tx, payload, written); err != nil {
			return err
		}

		return p.writeTitleTerms(ctx, tx, payload, bookID, book.CategoryID)
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("book written",
		"title", payload.Book.Title,
		"lines", len(payload.Flatten.Lines),
		"toc_entries", len(payload.Flatten.Tocs),
	)
	return written, nil
}

// writeAltStructures persists alternative TOCs, resolving leaf citations
// through the book's own lookup map. Unresolved citations are skipped.
func (p *Pipeline) writeAltStructures(ctx context.Context, tx *sqlite.Tx, payload *BookPayload, written *WrittenBook) error {
	for _, alt := range payload.AltStructures {
		structID, err := tx.InsertAltTocStructure(ctx, &domain.AltTocStructure{
			BookID:       written.BookID,
			StructureKey: alt.Key,
		})
		if err != nil {
			return err
		}

		for n, node := range alt.Nodes {
			parent := &domain.AltTocEntry{
				StructureID: structID,
				BookID:      written.BookID,
				Text:        heOr(node.HeTitle, node.Title),
				Level:       1,
				IsLastChild: n == len(alt.Nodes)-1,
				HasChildren: len(node.Refs) > 0,
			}
			if entry, ok := written.RefMap.Resolve(node.WholeRef); ok {
				parent.LineID = written.LineIDAt(entry.LineIndex)
			} else if node.WholeRef != "" {
				p.logger.Debug("alt structure citation unresolved",
					"book", payload.Book.Title, "ref", node.WholeRef)
			}
			parentID, err := tx.InsertAltTocEntry(ctx, parent)
			if err != nil {
				return err
			}

			for r, ref := range node.Refs {
				entry, ok := written.RefMap.Resolve(ref)
				if !ok {
					p.logger.Debug("alt structure citation unresolved",
						"book", payload.Book.Title, "ref", ref)
					continue
				}
				lineID := written.LineIDAt(entry.LineIndex)
				childID, err := tx.InsertAltTocEntry(ctx, &domain.AltTocEntry{
					StructureID: structID,
					BookID:      written.BookID,
					ParentID:    parentID,
					Text:        hebrew.Gematria(r + 1),
					Level:       2,
					LineID:      lineID,
					IsLastChild: r == len(node.Refs)-1,
				})
				if err != nil {
					return err
				}
				if lineID != 0 {
					if err := tx.InsertLineAltTocMapping(ctx, &domain.LineAltTocMapping{
						LineID:        lineID,
						AltTocEntryID: childID,
					}); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

// writeTitleTerms indexes the book's searchable titles (primary and
// Hebrew) for autocomplete.
func (p *Pipeline) writeTitleTerms(ctx context.Context, tx *sqlite.Tx, payload *BookPayload, bookID, categoryID int64) error {
	seen := make(map[string]bool)
	for _, title := range append([]string{payload.Book.Title, payload.HeTitle}, payload.Aliases...) {
		term := strings.TrimSpace(hebrew.Normalize(strings.ToLower(title)))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		if err := tx.InsertBookTitleTerm(ctx, &domain.BookTitleTerm{
			BookID:       bookID,
			Term:         term,
			DisplayTitle: payload.Book.Title,
			CategoryID:   categoryID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) runInTransaction(ctx context.Context, fn func(tx *sqlite.Tx) error) error {
	return p.store.RunInTransaction(ctx, fn)
}

// atomicCounter is a tiny mutex-free counter for skip tallies.
type atomicCounter struct{ n atomic.Int64 }

func (c *atomicCounter) inc()       { c.n.Add(1) }
func (c *atomicCounter) value() int { return int(c.n.Load()) }
