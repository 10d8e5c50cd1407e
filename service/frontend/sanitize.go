package frontend

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/xerrors"
)

const maxQueryLength = 500

// User-facing validation messages for rejected search queries.
const (
	msgEmptyQuery      = "Consulta vacía"
	msgQueryTooLong    = "Consulta muy larga"
	msgQueryDisallowed = "Consulta contiene caracteres no permitidos"
)

// Patterns that mark a query as an injection attempt regardless of what
// remains after tag stripping.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)document\.`),
	regexp.MustCompile(`(?i)window\.`),
}

var repeatedWhitespace = regexp.MustCompile(`\s+`)

// querySanitizer normalizes raw search input and rejects queries that are
// empty, oversized or carry markup.
type querySanitizer struct {
	// The pool for recycling policies. Each policy provides strict
	// sanitization but is not safe for concurrent use.
	policyPool sync.Pool
}

func newQuerySanitizer() *querySanitizer {
	return &querySanitizer{
		policyPool: sync.Pool{
			New: func() interface{} {
				return bluemonday.StrictPolicy()
			},
		},
	}
}

// sanitize strips any markup from the raw query and returns the cleaned-up
// expression. The returned error carries the user-facing message for queries
// that must be rejected.
func (qs *querySanitizer) sanitize(raw string) (string, error) {
	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(raw) {
			return "", xerrors.New(msgQueryDisallowed)
		}
	}

	policy := qs.policyPool.Get().(*bluemonday.Policy)
	clean := html.UnescapeString(policy.Sanitize(raw))
	qs.policyPool.Put(policy)

	clean = strings.TrimSpace(repeatedWhitespace.ReplaceAllString(clean, " "))
	if clean == "" {
		return "", xerrors.New(msgEmptyQuery)
	}
	if len(clean) > maxQueryLength {
		return "", xerrors.New(msgQueryTooLong)
	}
	return clean, nil
}
