package catalog

import "golang.org/x/xerrors"

var (
	// ErrNotFound is returned when a book lookup fails.
	ErrNotFound = xerrors.New("not found")

	// ErrMissingBookID is returned when attempting to index a book that
	// does not specify a valid ID.
	ErrMissingBookID = xerrors.New("book does not provide a valid ID")
)
