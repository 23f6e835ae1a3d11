// Package catalog builds, serializes, and loads the precomputed navigation
// catalog consumed at client startup instead of querying the database.
//
// The on-disk form (catalog.pb) is a length-prefixed, field-numbered binary
// record with stable field numbers; readers ignore unknown fields, so old
// clients keep working when new fields appear.
package catalog

// Catalog is the root of the precomputed navigation tree.
type Catalog struct {
	Roots           []*Category
	TotalBooks      int
	TotalCategories int
	Version         int
}

// Category is one node of the catalog tree, with its books and
// subcategories embedded.
type Category struct {
	ID            int64
	Title         string
	Level         int
	ParentID      int64
	Books         []*Book
	Subcategories []*Category
}

// Book is the compact per-book record embedded in the catalog.
type Book struct {
	ID         int64
	CategoryID int64
	Title      string
	Authors    []string
	Order      float64
	TotalLines int
	IsBaseBook bool

	HasTargumConnection     bool
	HasReferenceConnection  bool
	HasCommentaryConnection bool
	HasOtherConnection      bool
	HasAltStructures        bool
}

// ExtractAllBooks returns every book in the catalog, deduplicated by id,
// in depth-first order.
func (c *Catalog) ExtractAllBooks() []*Book {
	seen := make(map[int64]bool)
	var books []*Book
	var walk func(cat *Category)
	walk = func(cat *Category) {
		for _, b := range cat.Books {
			if !seen[b.ID] {
				seen[b.ID] = true
				books = append(books, b)
			}
		}
		for _, sub := range cat.Subcategories {
			walk(sub)
		}
	}
	for _, root := range c.Roots {
		walk(root)
	}
	return books
}

// FindCategoryByID returns the category with the given id, or nil.
func (c *Catalog) FindCategoryByID(id int64) *Category {
	var found *Category
	var walk func(cat *Category)
	walk = func(cat *Category) {
		if found != nil {
			return
		}
		if cat.ID == id {
			found = cat
			return
		}
		for _, sub := range cat.Subcategories {
			walk(sub)
		}
	}
	for _, root := range c.Roots {
		walk(root)
	}
	return found
}

// FindBookByID returns the book with the given id, or nil.
func (c *Catalog) FindBookByID(id int64) *Book {
	for _, b := range c.ExtractAllBooks() {
		if b.ID == id {
			return b
		}
	}
	return nil
}

// CategoryPath returns the chain of categories from a root down to the
// category with the given id, inclusive. Nil when the id is unknown.
func (c *Catalog) CategoryPath(id int64) []*Category {
	var path []*Category
	var walk func(cat *Category, trail []*Category) bool
	walk = func(cat *Category, trail []*Category) bool {
		trail = append(trail, cat)
		if cat.ID == id {
			path = append([]*Category(nil), trail...)
			return true
		}
		for _, sub := range cat.Subcategories {
			if walk(sub, trail) {
				return true
			}
		}
		return false
	}
	for _, root := range c.Roots {
		if walk(root, nil) {
			break
		}
	}
	return path
}

// BooksInCategory returns the books directly inside the category with the
// given id, without descending into subcategories.
func (c *Catalog) BooksInCategory(id int64) []*Book {
	cat := c.FindCategoryByID(id)
	if cat == nil {
		return nil
	}
	return cat.Books
}
