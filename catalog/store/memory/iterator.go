package memory

import (
	"github.com/blevesearch/bleve/v2"

	"github.com/buscalibros/buscalibros/catalog"
)

// bleveIterator implements catalog.Iterator.
type bleveIterator struct {
	cat       *InMemoryBleveCatalog
	searchReq *bleve.SearchRequest

	cumIdx uint64
	rsIdx  int
	rs     *bleve.SearchResult

	latchedBook *catalog.Book
	lastErr     error
}

// Close the iterator and release any allocated resources.
func (it *bleveIterator) Close() error {
	it.cat = nil
	it.searchReq = nil
	if it.rs != nil {
		it.cumIdx = it.rs.Total
	}
	return nil
}

// Next loads the next book matching the search query.
// It returns false if no more books are available.
func (it *bleveIterator) Next() bool {
	if it.lastErr != nil || it.rs == nil || it.cumIdx >= it.rs.Total {
		return false
	}

	// Do we need to fetch the next batch?
	if it.rsIdx >= it.rs.Hits.Len() {
		it.searchReq.From += it.searchReq.Size
		if it.rs, it.lastErr = it.cat.idx.Search(it.searchReq); it.lastErr != nil {
			return false
		}

		it.rsIdx = 0
	}

	nextID := it.rs.Hits[it.rsIdx].ID
	if it.latchedBook, it.lastErr = it.cat.findByID(nextID); it.lastErr != nil {
		return false
	}

	it.cumIdx++
	it.rsIdx++
	return true
}

// Error returns the last error encountered by the iterator.
func (it *bleveIterator) Error() error {
	return it.lastErr
}

// Book returns the current book from the result set.
func (it *bleveIterator) Book() *catalog.Book {
	return it.latchedBook
}

// TotalCount returns the approximate number of search results.
func (it *bleveIterator) TotalCount() uint64 {
	if it.rs == nil {
		return 0
	}
	return it.rs.Total
}
