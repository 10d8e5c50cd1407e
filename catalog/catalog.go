package catalog

import (
	"github.com/google/uuid"
)

// Book describes a single catalogued title.
type Book struct {
	// A unique identifier assigned to the book when it is ingested.
	ID uuid.UUID

	Title     string
	Author    string
	Publisher string
	ISBN      string

	// The category the book belongs to; populated from the name of the
	// spreadsheet tab it was read from.
	Category string

	// Fields preserves any additional spreadsheet columns keyed by their
	// header name.
	Fields map[string]string
}

// Query encapsulates a set of parameters to use when searching the catalog.
type Query struct {
	// The free-text search expression, matched against every book field.
	Expression string

	// An optional category filter. Matching is case-insensitive.
	Category string

	// The number of search results to skip.
	Offset uint64
}

// Iterator is implemented by objects that can paginate search results.
type Iterator interface {
	// Close the iterator and release any allocated resources.
	Close() error

	// Next loads the next book matching the search query.
	// It returns false if no more books are available.
	Next() bool

	// Error returns the last error encountered by the iterator.
	Error() error

	// Book returns the current book from the result set.
	Book() *Book

	// TotalCount returns the approximate number of search results.
	TotalCount() uint64
}

// Repository is implemented by objects that can index and search the book
// catalog.
type Repository interface {
	// ReplaceAll atomically swaps the full catalog contents with the
	// provided set of books. The catalog source is a spreadsheet that gets
	// re-fetched wholesale, so partial updates are never required.
	ReplaceAll(books []*Book) error

	// Search the catalog for a particular query and return back a result
	// iterator.
	Search(query Query) (Iterator, error)

	// All returns every catalogued book in insertion order, optionally
	// restricted to a category.
	All(category string) ([]*Book, error)
}
