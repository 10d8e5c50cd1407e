package frontend

import (
	"strings"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(SanitizerTestSuite))

type SanitizerTestSuite struct {
	sanitizer *querySanitizer
}

func (s *SanitizerTestSuite) SetUpTest(c *gc.C) {
	s.sanitizer = newQuerySanitizer()
}

func (s *SanitizerTestSuite) TestStripsMarkup(c *gc.C) {
	got, err := s.sanitizer.sanitize("<b>cien</b> años")
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, "cien años")
}

func (s *SanitizerTestSuite) TestCollapsesWhitespace(c *gc.C) {
	got, err := s.sanitizer.sanitize("  cien \t\n años  ")
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, "cien años")
}

func (s *SanitizerTestSuite) TestRejectsEmptyQuery(c *gc.C) {
	_, err := s.sanitizer.sanitize("   ")
	c.Assert(err, gc.ErrorMatches, "Consulta vacía")

	// A query that is nothing but markup ends up empty as well.
	_, err = s.sanitizer.sanitize("<b></b>")
	c.Assert(err, gc.ErrorMatches, "Consulta vacía")
}

func (s *SanitizerTestSuite) TestRejectsOversizedQuery(c *gc.C) {
	_, err := s.sanitizer.sanitize(strings.Repeat("a", maxQueryLength+1))
	c.Assert(err, gc.ErrorMatches, "Consulta muy larga")
}

func (s *SanitizerTestSuite) TestRejectsSuspiciousQueries(c *gc.C) {
	for _, query := range []string{
		"<script>alert(1)</script>",
		"javascript:alert(1)",
		"x onerror=alert(1)",
		"eval (document.cookie)",
		"document.location",
		"window.open",
	} {
		_, err := s.sanitizer.sanitize(query)
		c.Assert(err, gc.ErrorMatches, "Consulta contiene caracteres no permitidos",
			gc.Commentf("query: %s", query))
	}
}

func (s *SanitizerTestSuite) TestPreservesAccentedCharacters(c *gc.C) {
	got, err := s.sanitizer.sanitize("educación & niños")
	c.Assert(err, gc.IsNil)
	c.Assert(got, gc.Equals, "educación & niños")
}
