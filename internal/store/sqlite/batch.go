package sqlite

import (
	"context"
	"sync"

	"github.com/seforimapp/seforim-server/internal/domain"
)

// BatchWriter accumulates lines, line-TOC mappings, and links, flushing
// each kind in a single transaction when the batch fills. Every record is
// written at most once: Flush takes records out of the buffer before its
// transaction, so a record is never both buffered and committed, and the
// records of a failed Flush are dropped.
type BatchWriter struct {
	store   *Store
	maxSize int

	mu       sync.Mutex
	lines    []*domain.Line
	lineIDs  []chan<- int64
	mappings []*domain.LineTocMapping
	links    []*domain.Link
	count    int
	canceled bool
}

// NewBatchWriter creates a batch writer flushing after maxSize buffered
// records.
func (s *Store) NewBatchWriter(maxSize int) *BatchWriter {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &BatchWriter{store: s, maxSize: maxSize}
}

// AddLine buffers one line for insertion. The assigned id is delivered on
// the returned channel when the batch holding the line commits.
func (bw *BatchWriter) AddLine(ctx context.Context, l *domain.Line) (<-chan int64, error) {
	bw.mu.Lock()
	if bw.canceled {
		bw.mu.Unlock()
		return nil, context.Canceled
	}
	idCh := make(chan int64, 1)
	bw.lines = append(bw.lines, l)
	bw.lineIDs = append(bw.lineIDs, idCh)
	full := bw.size() >= bw.maxSize
	bw.mu.Unlock()

	if full {
		if err := bw.Flush(ctx); err != nil {
			return nil, err
		}
	}
	return idCh, nil
}

// AddMapping buffers one line-TOC mapping.
func (bw *BatchWriter) AddMapping(ctx context.Context, m *domain.LineTocMapping) error {
	return bw.add(ctx, func() { bw.mappings = append(bw.mappings, m) })
}

// AddLink buffers one link.
func (bw *BatchWriter) AddLink(ctx context.Context, l *domain.Link) error {
	return bw.add(ctx, func() { bw.links = append(bw.links, l) })
}

// AddLinkPair buffers a bidirectional link pair under one lock, so both
// directions always land in the same flush transaction and no reader ever
// observes half a pair.
func (bw *BatchWriter) AddLinkPair(ctx context.Context, forward, reverse *domain.Link) error {
	return bw.add(ctx, func() { bw.links = append(bw.links, forward, reverse) })
}

func (bw *BatchWriter) add(ctx context.Context, push func()) error {
	bw.mu.Lock()
	if bw.canceled {
		bw.mu.Unlock()
		return context.Canceled
	}
	push()
	full := bw.size() >= bw.maxSize
	bw.mu.Unlock()

	if full {
		return bw.Flush(ctx)
	}
	return nil
}

func (bw *BatchWriter) size() int {
	return len(bw.lines) + len(bw.mappings) + len(bw.links)
}

// Flush writes all buffered records in a single transaction. If any record
// fails, the entire batch rolls back and stays un-counted.
func (bw *BatchWriter) Flush(ctx context.Context) error {
	bw.mu.Lock()
	lines := bw.lines
	lineIDs := bw.lineIDs
	mappings := bw.mappings
	links := bw.links
	bw.lines, bw.lineIDs, bw.mappings, bw.links = nil, nil, nil, nil
	bw.mu.Unlock()

	if len(lines) == 0 && len(mappings) == 0 && len(links) == 0 {
		return nil
	}

	assigned := make([]int64, len(lines))
	err := bw.store.RunInTransaction(ctx, func(tx *Tx) error {
		for i, l := range lines {
			id, err := tx.InsertLine(ctx, l)
			if err != nil {
				return err
			}
			assigned[i] = id
		}
		for _, m := range mappings {
			if err := tx.InsertLineTocMapping(ctx, m); err != nil {
				return err
			}
		}
		for _, l := range links {
			if _, err := tx.InsertLink(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, ch := range lineIDs {
		ch <- assigned[i]
		close(ch)
	}

	bw.mu.Lock()
	bw.count += len(lines) + len(mappings) + len(links)
	bw.mu.Unlock()
	return nil
}

// Cancel marks the writer as canceled; subsequent adds return
// context.Canceled and buffered records are dropped.
func (bw *BatchWriter) Cancel() {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	bw.canceled = true
	bw.lines, bw.lineIDs, bw.mappings, bw.links = nil, nil, nil, nil
}

// Count returns the number of records successfully flushed.
func (bw *BatchWriter) Count() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return bw.count
}
