package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(FetcherTestSuite))

func Test(t *testing.T) { gc.TestingT(t) }

type FetcherTestSuite struct {
	srv *httptest.Server

	// Sheet values keyed by the unescaped range reference.
	sheetData map[string][][]string
}

func (s *FetcherTestSuite) SetUpTest(c *gc.C) {
	s.sheetData = make(map[string][][]string)
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		segments := strings.Split(r.URL.Path, "/")
		rangeRef, err := url.PathUnescape(segments[len(segments)-1])
		c.Assert(err, gc.IsNil)

		values, found := s.sheetData[rangeRef]
		if !found {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		c.Assert(json.NewEncoder(w).Encode(map[string]interface{}{"values": values}), gc.IsNil)
	}))
}

func (s *FetcherTestSuite) TearDownTest(c *gc.C) {
	s.srv.Close()
}

func (s *FetcherTestSuite) newFetcher(c *gc.C, sheetNames ...string) *Fetcher {
	f, err := NewFetcher(Config{
		SpreadsheetID: "sheet-id",
		SheetNames:    sheetNames,
		BaseURL:       s.srv.URL,
		Client:        s.srv.Client(),
	})
	c.Assert(err, gc.IsNil)
	return f
}

func (s *FetcherTestSuite) TestConfigValidation(c *gc.C) {
	_, err := NewFetcher(Config{SheetNames: []string{"X"}, Client: http.DefaultClient})
	c.Assert(err, gc.ErrorMatches, "(?ms).*spreadsheet ID has not been specified.*")

	_, err = NewFetcher(Config{SpreadsheetID: "sheet-id", Client: http.DefaultClient})
	c.Assert(err, gc.ErrorMatches, "(?ms).*sheet names have not been specified.*")

	_, err = NewFetcher(Config{SpreadsheetID: "sheet-id", SheetNames: []string{"X"}})
	c.Assert(err, gc.ErrorMatches, "(?ms).*service account credentials have not been provided.*")
}

func (s *FetcherTestSuite) TestFetchFlattensRows(c *gc.C) {
	s.sheetData["'LIT. ADULTO'!A:Z"] = [][]string{
		{"TÍTULO", "AUTOR", "EDITORIAL", "ISBN", "ESTADO"},
		{"Cien Años de Soledad", "Gabriel García Márquez", "Sudamericana", "978-0307474728", "bueno"},
		{"", "  ", ""}, // blank row, skipped
		{"Rayuela", "Julio Cortázar"}, // short row, padded
	}

	books, err := s.newFetcher(c, "LIT. ADULTO").Fetch(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(books, gc.HasLen, 2)

	c.Assert(books[0].ID, gc.Not(gc.Equals), uuid.Nil)
	c.Assert(books[0].Title, gc.Equals, "Cien Años de Soledad")
	c.Assert(books[0].Author, gc.Equals, "Gabriel García Márquez")
	c.Assert(books[0].Publisher, gc.Equals, "Sudamericana")
	c.Assert(books[0].ISBN, gc.Equals, "978-0307474728")
	c.Assert(books[0].Category, gc.Equals, "LIT. ADULTO")
	c.Assert(books[0].Fields, gc.DeepEquals, map[string]string{"ESTADO": "bueno"})

	c.Assert(books[1].Title, gc.Equals, "Rayuela")
	c.Assert(books[1].Publisher, gc.Equals, "")
	c.Assert(books[1].Fields, gc.DeepEquals, map[string]string{"ESTADO": ""})
}

func (s *FetcherTestSuite) TestFetchSkipsFailingSheets(c *gc.C) {
	s.sheetData["'LIT. INFANTIL'!A:Z"] = [][]string{
		{"TITULO"},
		{"El Principito"},
	}

	// "EDUCACIÓN" is not known to the fake server and yields a 403.
	books, err := s.newFetcher(c, "EDUCACIÓN", "LIT. INFANTIL").Fetch(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(books, gc.HasLen, 1)
	c.Assert(books[0].Title, gc.Equals, "El Principito")
	c.Assert(books[0].Category, gc.Equals, "LIT. INFANTIL")
}

func (s *FetcherTestSuite) TestFetchFailsWhenNoSheetLoads(c *gc.C) {
	_, err := s.newFetcher(c, "EDUCACIÓN").Fetch(context.TODO())
	c.Assert(err, gc.ErrorMatches, "(?ms).*no sheet could be read.*")
}

func (s *FetcherTestSuite) TestFetchIgnoresHeaderOnlySheets(c *gc.C) {
	s.sheetData["'MANUALES'!A:Z"] = [][]string{{"TÍTULO", "AUTOR"}}

	books, err := s.newFetcher(c, "MANUALES").Fetch(context.TODO())
	c.Assert(err, gc.IsNil)
	c.Assert(books, gc.HasLen, 0)
}
