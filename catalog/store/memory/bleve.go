package memory

import (
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/buscalibros/buscalibros/catalog"
)

// The size of each page of results that is cached locally by the iterator.
const batchSize = 10

// Compile-time check to ensure InMemoryBleveCatalog implements Repository.
var _ catalog.Repository = (*InMemoryBleveCatalog)(nil)

type bleveBook struct {
	Title     string
	Author    string
	Publisher string
	ISBN      string
	Category  string
	Extra     string
}

// InMemoryBleveCatalog is a Repository implementation that uses an in-memory
// bleve instance to catalogue and search books.
type InMemoryBleveCatalog struct {
	mu    sync.RWMutex
	books map[string]*catalog.Book
	order []string

	idx bleve.Index
}

// NewInMemoryBleveCatalog creates a catalog repository that uses an in-memory
// bleve instance for indexing books.
func NewInMemoryBleveCatalog() (*InMemoryBleveCatalog, error) {
	mapping := bleve.NewIndexMapping()

	// Categories must match exactly (case-folded); everything else gets the
	// standard full-text treatment.
	catField := bleve.NewTextFieldMapping()
	catField.Analyzer = keyword.Name
	bookMapping := bleve.NewDocumentMapping()
	bookMapping.AddFieldMappingsAt("Category", catField)
	mapping.DefaultMapping = bookMapping

	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, err
	}

	return &InMemoryBleveCatalog{
		idx:   idx,
		books: make(map[string]*catalog.Book),
	}, nil
}

// Close the catalog and release any allocated resources.
func (s *InMemoryBleveCatalog) Close() error {
	return s.idx.Close()
}

// ReplaceAll implements catalog.Repository.
func (s *InMemoryBleveCatalog) ReplaceAll(books []*catalog.Book) error {
	batch := s.idx.NewBatch()
	nextBooks := make(map[string]*catalog.Book, len(books))
	nextOrder := make([]string, 0, len(books))
	for _, book := range books {
		if book.ID == uuid.Nil {
			return xerrors.Errorf("replace all: %w", catalog.ErrMissingBookID)
		}
		bcopy := copyBook(book)
		key := bcopy.ID.String()
		if err := batch.Index(key, makeBleveBook(bcopy)); err != nil {
			return xerrors.Errorf("replace all: %w", err)
		}
		nextBooks[key] = bcopy
		nextOrder = append(nextOrder, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.books {
		if _, replaced := nextBooks[key]; !replaced {
			batch.Delete(key)
		}
	}
	if err := s.idx.Batch(batch); err != nil {
		return xerrors.Errorf("replace all: %w", err)
	}

	s.books = nextBooks
	s.order = nextOrder
	return nil
}

// Search implements catalog.Repository.
func (s *InMemoryBleveCatalog) Search(q catalog.Query) (catalog.Iterator, error) {
	var bq query.Query = bleve.NewMatchQuery(q.Expression)
	if q.Category != "" {
		catQuery := bleve.NewTermQuery(strings.ToLower(q.Category))
		catQuery.SetField("Category")
		bq = bleve.NewConjunctionQuery(bq, catQuery)
	}

	searchReq := bleve.NewSearchRequest(bq)
	searchReq.Size = batchSize
	searchReq.From = int(q.Offset)
	rs, err := s.idx.Search(searchReq)
	if err != nil {
		return nil, xerrors.Errorf("search: %w", err)
	}

	return &bleveIterator{cat: s, searchReq: searchReq, rs: rs, cumIdx: q.Offset}, nil
}

// All implements catalog.Repository.
func (s *InMemoryBleveCatalog) All(category string) ([]*catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*catalog.Book, 0, len(s.order))
	for _, key := range s.order {
		book := s.books[key]
		if category != "" && !strings.EqualFold(book.Category, category) {
			continue
		}
		out = append(out, copyBook(book))
	}
	return out, nil
}

// Categories returns the distinct categories present in the catalog, sorted
// alphabetically.
func (s *InMemoryBleveCatalog) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, book := range s.books {
		if _, dup := seen[book.Category]; dup {
			continue
		}
		seen[book.Category] = struct{}{}
		out = append(out, book.Category)
	}
	sort.Strings(out)
	return out
}

// findByID looks up a book by its UUID expressed as a string.
func (s *InMemoryBleveCatalog) findByID(id string) (*catalog.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if b, found := s.books[id]; found {
		return copyBook(b), nil
	}

	return nil, xerrors.Errorf("find by ID: %w", catalog.ErrNotFound)
}

func copyBook(b *catalog.Book) *catalog.Book {
	bcopy := new(catalog.Book)
	*bcopy = *b
	if b.Fields != nil {
		bcopy.Fields = make(map[string]string, len(b.Fields))
		for k, v := range b.Fields {
			bcopy.Fields[k] = v
		}
	}
	return bcopy
}

func makeBleveBook(b *catalog.Book) bleveBook {
	extra := make([]string, 0, len(b.Fields))
	for _, v := range b.Fields {
		extra = append(extra, v)
	}
	sort.Strings(extra)
	return bleveBook{
		Title:     b.Title,
		Author:    b.Author,
		Publisher: b.Publisher,
		ISBN:      b.ISBN,
		Category:  strings.ToLower(b.Category),
		Extra:     strings.Join(extra, " "),
	}
}
