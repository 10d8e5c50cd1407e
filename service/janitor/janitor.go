package janitor

import (
	"context"
	"io/ioutil"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks.go github.com/buscalibros/buscalibros/service/janitor Sweeper

// Sweeper is implemented by stores that can evict their expired entries and
// report how many got removed.
type Sweeper interface {
	CleanExpired() int
}

// Config encapsulates the settings for configuring the janitor service.
type Config struct {
	// The store to periodically sweep.
	Sweeper Sweeper

	// The clock to use for scheduling sweeps. If not specified, the
	// wall-clock will be used instead.
	Clock clock.Clock

	// The time between subsequent sweeps.
	SweepInterval time.Duration

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error
	if cfg.Sweeper == nil {
		err = multierror.Append(err, xerrors.Errorf("sweeper has not been provided"))
	}
	if cfg.SweepInterval == 0 {
		err = multierror.Append(err, xerrors.Errorf("invalid value for sweep interval"))
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// Service periodically evicts expired CAPTCHA challenges so abandoned
// sessions do not pile up in memory.
type Service struct {
	cfg Config
}

// NewService creates a new janitor service instance with the specified config.
func NewService(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("janitor service: config validation failed: %w", err)
	}
	return &Service{cfg: cfg}, nil
}

// Name implements service.Service
func (svc *Service) Name() string { return "janitor" }

// Run implements service.Service
func (svc *Service) Run(ctx context.Context) error {
	svc.cfg.Logger.WithField("sweep_interval", svc.cfg.SweepInterval.String()).Info("starting service")
	defer svc.cfg.Logger.Info("stopped service")

	for {
		sweepAt := svc.cfg.Clock.After(svc.cfg.SweepInterval)
		select {
		case <-sweepAt:
			if removed := svc.cfg.Sweeper.CleanExpired(); removed > 0 {
				svc.cfg.Logger.WithField("num_removed", removed).Info("swept expired challenges")
			}
		case <-ctx.Done():
			return nil
		}
	}
}
