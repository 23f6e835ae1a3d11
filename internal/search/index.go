package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// currentMarker names the file recording the live index generation, so a
// process restart opens the generation the last rebuild promoted.
const currentMarker = "CURRENT"

// SearchIndex wraps a Bleve index with the line/book-title schema.
//
// Thread safety: all public methods are safe for concurrent use. Query
// sessions hold a snapshot reference to the underlying index; a rebuild
// creates a fresh generation and swaps the pointer, so the new snapshot
// becomes visible only at the next OpenSession while active sessions keep
// reading the retired generation.
type SearchIndex struct {
	dataPath string
	logger   *slog.Logger

	mu         sync.RWMutex
	index      bleve.Index
	retired    []bleve.Index
	generation int
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage
	Logger   *slog.Logger // Logger for operations (discard if nil)
}

// generationPath returns the directory of one index generation.
func generationPath(dataPath string, generation int) string {
	return filepath.Join(dataPath, fmt.Sprintf("lines.bleve.g%d", generation))
}

// readCurrentGeneration returns the promoted generation, defaulting to 0.
func readCurrentGeneration(dataPath string) int {
	data, err := os.ReadFile(filepath.Join(dataPath, currentMarker))
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// writeCurrentGeneration promotes a generation atomically.
func writeCurrentGeneration(dataPath string, generation int) error {
	path := filepath.Join(dataPath, currentMarker)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.Itoa(generation)+"\n"), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// NewSearchIndex creates or opens a search index. A corrupted existing
// index is removed and recreated.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	generation := readCurrentGeneration(opts.DataPath)
	cleanStaleGenerations(opts.DataPath, generation)
	indexPath := generationPath(opts.DataPath, generation)

	var index bleve.Index
	var err error

	if _, statErr := os.Stat(indexPath); statErr == nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			logger.Warn("failed to open existing index, will recreate",
				"path", indexPath,
				"error", err,
			)
			if removeErr := os.RemoveAll(indexPath); removeErr != nil {
				return nil, fmt.Errorf("remove corrupted index: %w", removeErr)
			}
			index = nil
		}
	}

	if index == nil {
		indexMapping, err := buildIndexMapping()
		if err != nil {
			return nil, fmt.Errorf("build index mapping: %w", err)
		}
		index, err = bleve.New(indexPath, indexMapping)
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		logger.Info("created new search index", "path", indexPath)
	} else {
		logger.Info("opened existing search index", "path", indexPath)
	}

	return &SearchIndex{
		dataPath:   opts.DataPath,
		index:      index,
		generation: generation,
		logger:     logger,
	}, nil
}

// Close closes the live index and every retired snapshot.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, old := range s.retired {
		if err := old.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.retired = nil
	if err := s.index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// DocumentCount returns the number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild creates a fresh empty generation and promotes it, retiring the
// current snapshot instead of closing it so active sessions finish
// undisturbed. The new snapshot becomes visible at the next OpenSession.
func (s *SearchIndex) Rebuild() error {
	indexMapping, err := buildIndexMapping()
	if err != nil {
		return fmt.Errorf("build index mapping: %w", err)
	}

	s.mu.Lock()
	next := s.generation + 1
	s.mu.Unlock()

	freshPath := generationPath(s.dataPath, next)
	if err := os.RemoveAll(freshPath); err != nil {
		return fmt.Errorf("clear rebuild dir: %w", err)
	}
	fresh, err := bleve.New(freshPath, indexMapping)
	if err != nil {
		return fmt.Errorf("create fresh index: %w", err)
	}
	if err := writeCurrentGeneration(s.dataPath, next); err != nil {
		fresh.Close()
		return fmt.Errorf("promote generation %d: %w", next, err)
	}

	s.mu.Lock()
	s.retired = append(s.retired, s.index)
	s.index = fresh
	s.generation = next
	s.mu.Unlock()

	s.logger.Info("rebuilt search index", "path", freshPath)
	return nil
}

// cleanStaleGenerations removes index directories other than the promoted
// one. Runs at open time, when nothing can be reading them.
func cleanStaleGenerations(dataPath string, live int) {
	entries, err := os.ReadDir(dataPath)
	if err != nil {
		return
	}
	liveName := filepath.Base(generationPath(dataPath, live))
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "lines.bleve.g") || name == liveName {
			continue
		}
		_ = os.RemoveAll(filepath.Join(dataPath, name))
	}
}

// snapshot returns the current index for a new session.
func (s *SearchIndex) snapshot() bleve.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// Writer is the buffered index writer. Writes accumulate into batches;
// Commit is the atomic visibility boundary. Callers guarantee that no two
// line documents share a line id.
type Writer struct {
	index     *SearchIndex
	batchSize int

	mu    sync.Mutex
	batch *bleve.Batch
	count int
}

// NewWriter creates a writer flushing every batchSize documents.
func (s *SearchIndex) NewWriter(batchSize int) *Writer {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Writer{
		index:     s,
		batchSize: batchSize,
		batch:     s.snapshot().NewBatch(),
	}
}

// AddLine buffers one line document.
func (w *Writer) AddLine(doc *LineDocument) error {
	return w.add(doc.ID(), doc.ToMap())
}

// AddBookTitleTerm buffers one book-title document.
func (w *Writer) AddBookTitleTerm(doc *BookTitleDocument) error {
	return w.add(doc.ID(), doc.ToMap())
}

func (w *Writer) add(id string, fields map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.batch.Index(id, fields); err != nil {
		return fmt.Errorf("batch index %s: %w", id, err)
	}
	w.count++
	if w.batch.Size() >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Commit flushes the remaining buffered documents.
func (w *Writer) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if w.batch.Size() == 0 {
		return nil
	}
	idx := w.index.snapshot()
	if err := idx.Batch(w.batch); err != nil {
		return fmt.Errorf("commit index batch: %w", err)
	}
	w.batch = idx.NewBatch()
	return nil
}

// Count returns the number of documents accepted so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close flushes outstanding documents; the index itself stays open.
func (w *Writer) Close() error {
	return w.Commit()
}
