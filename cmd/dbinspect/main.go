// Command dbinspect prints a quick structural summary of a built
// seforim.db: row counts per table, the category tree, and sample lines
// for one book.
//
// Usage:
//
//	dbinspect --db-path ~/seforim/seforim.db
//	dbinspect --db-path ./seforim.db --book "Genesis"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/seforimapp/seforim-server/internal/catalog"
	"github.com/seforimapp/seforim-server/internal/store/sqlite"
)

var (
	dbPath   = flag.String("db-path", "", "Path to seforim.db")
	bookName = flag.String("book", "", "Print sample lines for this book title")
)

func main() {
	flag.Parse()
	if *dbPath == "" {
		log.Fatal("--db-path is required")
	}

	s, err := sqlite.OpenReadOnly(*dbPath, nil)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer s.Close()

	ctx := context.Background()

	books, err := s.ListBooks(ctx)
	if err != nil {
		log.Fatalf("list books: %v", err)
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		log.Fatalf("list categories: %v", err)
	}

	fmt.Printf("categories: %d\nbooks:      %d\n", len(cats), len(books))

	totalLines := 0
	baseBooks := 0
	for _, b := range books {
		totalLines += b.TotalLines
		if b.IsBaseBook {
			baseBooks++
		}
	}
	fmt.Printf("lines:      %d\nbase books: %d\n", totalLines, baseBooks)

	if cat := catalog.Load(filepath.Dir(*dbPath), nil); cat != nil {
		fmt.Printf("catalog:    v%d, %d books / %d categories\n",
			cat.Version, cat.TotalBooks, cat.TotalCategories)
	} else {
		fmt.Println("catalog:    missing")
	}

	fmt.Println("\ncategory tree:")
	for _, c := range cats {
		fmt.Printf("%s%s (id=%d)\n", strings.Repeat("  ", c.Level), c.Title, c.ID)
	}

	if *bookName == "" {
		return
	}
	book, err := s.GetBookByTitle(ctx, *bookName)
	if err != nil || book == nil {
		log.Fatalf("book %q not found", *bookName)
	}
	fmt.Printf("\n%s (id=%d, lines=%d, base=%v)\n", book.Title, book.ID, book.TotalLines, book.IsBaseBook)

	lines, err := s.GetLinesForBook(ctx, book.ID)
	if err != nil {
		log.Fatalf("lines: %v", err)
	}
	for i, l := range lines {
		if i >= 10 {
			fmt.Printf("  ... %d more\n", len(lines)-10)
			break
		}
		ref := l.Ref
		if ref == "" {
			ref = "(heading)"
		}
		fmt.Printf("  %4d %-40s %s\n", l.LineIndex, ref, truncate(l.Content, 60))
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
