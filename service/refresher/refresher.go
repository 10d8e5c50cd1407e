package refresher

import (
	"context"
	"io/ioutil"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/buscalibros/buscalibros/catalog"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/buscalibros/buscalibros/service/refresher CatalogAPI,SheetsAPI

// CatalogAPI defines a set of API methods for replacing the catalog contents.
type CatalogAPI interface {
	ReplaceAll(books []*catalog.Book) error
}

// SheetsAPI defines a set of API methods for reading the book records from
// the upstream spreadsheet.
type SheetsAPI interface {
	Fetch(ctx context.Context) ([]*catalog.Book, error)
}

// Config encapsulates the settings for configuring the catalog refresher
// service.
type Config struct {
	// An API for replacing the contents of the book catalog.
	CatalogAPI CatalogAPI

	// An API for fetching the latest book records.
	SheetsAPI SheetsAPI

	// The clock to use for periodically refreshing the catalog. If not
	// specified, the wall-clock will be used instead.
	Clock clock.Clock

	// The time between subsequent catalog refreshes.
	UpdateInterval time.Duration

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.CatalogAPI == nil {
		err = multierror.Append(err, xerrors.Errorf("catalog API has not been provided"))
	}
	if cfg.SheetsAPI == nil {
		err = multierror.Append(err, xerrors.Errorf("sheets API has not been provided"))
	}
	if cfg.UpdateInterval == 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for update interval"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Service periodically re-reads the spreadsheet and swaps the fetched records
// into the book catalog.
type Service struct {
	cfg Config
}

// NewService creates a new catalog refresher service instance with the
// specified config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("refresher service: config validation failed: %w", err)
	}
	return &Service{cfg: cfg}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "refresher" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	svc.cfg.Logger.WithField("update_interval", svc.cfg.UpdateInterval.String()).Info("starting service")
	defer svc.cfg.Logger.Info("stopped service")

	// Populate the catalog immediately so searches work as soon as the
	// front-end comes up.
	if err := svc.refreshCatalog(ctx); err != nil {
		return err
	}

	for {
		refreshAt := svc.cfg.Clock.After(svc.cfg.UpdateInterval)
		select {
		case <-refreshAt:
			if err := svc.refreshCatalog(ctx); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// refreshCatalog fetches the latest book records and swaps them into the
// catalog. Fetch failures are transient (quota limits, network blips) so they
// get logged and the current catalog contents stay in place until the next
// refresh.
func (svc *Service) refreshCatalog(ctx context.Context) error {
	books, err := svc.cfg.SheetsAPI.Fetch(ctx)
	if err != nil {
		svc.cfg.Logger.WithField("err", err).Warn("unable to fetch book records; keeping current catalog")
		return nil
	}

	if err = svc.cfg.CatalogAPI.ReplaceAll(books); err != nil {
		return xerrors.Errorf("refresher service: unable to replace catalog contents: %w", err)
	}

	svc.cfg.Logger.WithField("num_books", len(books)).Info("refreshed catalog")
	return nil
}
