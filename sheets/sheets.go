package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"golang.org/x/xerrors"

	"github.com/buscalibros/buscalibros/catalog"
)

const (
	defaultBaseURL = "https://sheets.googleapis.com/v4/spreadsheets"
	readOnlyScope  = "https://www.googleapis.com/auth/spreadsheets.readonly"
)

// The spreadsheet columns that map onto dedicated Book fields. Any other
// column is preserved in the book's Fields map.
var wellKnownColumns = map[string]func(*catalog.Book, string){
	"TÍTULO":    func(b *catalog.Book, v string) { b.Title = v },
	"TITULO":    func(b *catalog.Book, v string) { b.Title = v },
	"AUTOR":     func(b *catalog.Book, v string) { b.Author = v },
	"EDITORIAL": func(b *catalog.Book, v string) { b.Publisher = v },
	"ISBN":      func(b *catalog.Book, v string) { b.ISBN = v },
}

// Config encapsulates the settings for creating a spreadsheet fetcher.
type Config struct {
	// The ID of the Google spreadsheet holding the catalog.
	SpreadsheetID string

	// The sheet tabs to read. The tab name doubles as the category that
	// gets assigned to every book read from it.
	SheetNames []string

	// Service account credentials for the Sheets API.
	ServiceAccountEmail string
	PrivateKey          []byte

	// The base URL for the Sheets values API. If not specified, the public
	// Google endpoint will be used instead.
	BaseURL string

	// The HTTP client to use. If not specified, a client that injects
	// service-account bearer tokens will be constructed from the
	// credentials above.
	Client *http.Client

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.SpreadsheetID == "" {
		err = multierror.Append(err, xerrors.Errorf("spreadsheet ID has not been specified"))
	}
	if len(cfg.SheetNames) == 0 {
		err = multierror.Append(err, xerrors.Errorf("sheet names have not been specified"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Client == nil {
		if cfg.ServiceAccountEmail == "" || len(cfg.PrivateKey) == 0 {
			err = multierror.Append(err, xerrors.Errorf("service account credentials have not been provided"))
		} else {
			jwtCfg := &jwt.Config{
				Email:      cfg.ServiceAccountEmail,
				PrivateKey: cfg.PrivateKey,
				Scopes:     []string{readOnlyScope},
				TokenURL:   google.JWTTokenURL,
			}
			cfg.Client = jwtCfg.Client(context.Background())
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Fetcher retrieves book records from a Google spreadsheet and flattens them
// into catalog entries.
type Fetcher struct {
	cfg Config
}

// NewFetcher creates a new spreadsheet fetcher instance with the specified
// config.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("sheets fetcher: config validation failed: %w", err)
	}
	return &Fetcher{cfg: cfg}, nil
}

// valueRange mirrors the subset of the Sheets v4 values.get response that the
// fetcher consumes.
type valueRange struct {
	Values [][]string `json:"values"`
}

// Fetch reads every configured sheet tab and returns the flattened book
// records. A tab that fails to load is logged and skipped; Fetch only fails
// when no tab could be read at all.
func (f *Fetcher) Fetch(ctx context.Context) ([]*catalog.Book, error) {
	var (
		books   []*catalog.Book
		fetched int
		lastErr error
	)
	for _, sheetName := range f.cfg.SheetNames {
		rows, err := f.fetchSheet(ctx, sheetName)
		if err != nil {
			f.cfg.Logger.WithFields(logrus.Fields{
				"sheet": sheetName,
				"err":   err,
			}).Warn("skipping sheet that could not be read")
			lastErr = err
			continue
		}

		fetched++
		books = append(books, flattenRows(sheetName, rows)...)
	}

	if fetched == 0 {
		return nil, xerrors.Errorf("sheets fetcher: no sheet could be read: %w", lastErr)
	}
	return books, nil
}

func (f *Fetcher) fetchSheet(ctx context.Context, sheetName string) ([][]string, error) {
	rangeRef := fmt.Sprintf("'%s'!A:Z", sheetName)
	endpoint := fmt.Sprintf("%s/%s/values/%s",
		f.cfg.BaseURL,
		url.PathEscape(f.cfg.SpreadsheetID),
		url.PathEscape(rangeRef),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, xerrors.Errorf("build values request: %w", err)
	}

	res, err := f.cfg.Client.Do(req)
	if err != nil {
		return nil, xerrors.Errorf("fetch values: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("fetch values: unexpected status %d", res.StatusCode)
	}

	var vr valueRange
	if err := json.NewDecoder(res.Body).Decode(&vr); err != nil {
		return nil, xerrors.Errorf("decode values response: %w", err)
	}
	return vr.Values, nil
}

// flattenRows converts a sheet's rows into book records. The first row is
// treated as the header row; short rows are padded with empty cells and rows
// without any content are skipped.
func flattenRows(sheetName string, rows [][]string) []*catalog.Book {
	if len(rows) < 2 {
		return nil
	}

	headers := rows[0]
	books := make([]*catalog.Book, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		book := &catalog.Book{
			ID:       uuid.New(),
			Category: sheetName,
			Fields:   make(map[string]string),
		}
		for i, header := range headers {
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}

			if assign, known := wellKnownColumns[strings.ToUpper(strings.TrimSpace(header))]; known {
				assign(book, cell)
				continue
			}
			if header = strings.TrimSpace(header); header != "" {
				book.Fields[header] = cell
			}
		}
		books = append(books, book)
	}
	return books
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
