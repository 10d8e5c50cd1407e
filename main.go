package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/buscalibros/buscalibros/captcha"
	"github.com/buscalibros/buscalibros/catalog/store/memory"
	"github.com/buscalibros/buscalibros/service"
	"github.com/buscalibros/buscalibros/service/frontend"
	"github.com/buscalibros/buscalibros/service/janitor"
	"github.com/buscalibros/buscalibros/service/refresher"
	"github.com/buscalibros/buscalibros/sheets"
)

var (
	appName = "buscalibros"
	appSha  = "populated-at-link-time"

	defaultSheetNames = strings.Join([]string{
		"LIT. ADULTO",
		"LIT. JUVENIL ADOLESCENTE",
		"LIT. INFANTIL",
		"EDUCACIÓN",
		"MANUALES",
	}, ",")
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	logger := rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"sha":  appSha,
		"host": host,
	})

	if err := runMain(logger); err != nil {
		logrus.WithField("err", err).Error("shutting down due to error")
		return
	}
	logger.Info("shutdown complete")
}

func runMain(logger *logrus.Entry) error {
	svcGroup, err := setupServices(logger)
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGHUP)
		select {
		case s := <-sigCh:
			logger.WithField("signal", s.String()).Infof("shutting down due to signal")
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return svcGroup.Run(ctx)
}

func setupServices(logger *logrus.Entry) (service.Group, error) {
	var (
		frontendCfg  frontend.Config
		refresherCfg refresher.Config
		janitorCfg   janitor.Config
		captchaCfg   captcha.Config
	)

	flag.StringVar(&frontendCfg.ListenAddr, "listen-addr", ":8080", "The address to listen for incoming front-end requests")
	flag.IntVar(&frontendCfg.ResultsPerPage, "results-per-page", 30, "The number of entries for each search result page")
	flag.IntVar(&frontendCfg.FreeSearches, "free-searches", 3, "The number of searches a session may perform before a captcha is required")

	flag.DurationVar(&refresherCfg.UpdateInterval, "catalog-refresh-interval", 30*time.Minute, "The time between subsequent catalog refreshes from the spreadsheet")
	flag.DurationVar(&janitorCfg.SweepInterval, "captcha-sweep-interval", time.Minute, "The time between subsequent sweeps of expired captcha challenges")

	flag.DurationVar(&captchaCfg.ChallengeTTL, "captcha-ttl", 15*time.Minute, "The amount of time a generated captcha challenge remains valid")
	flag.IntVar(&captchaCfg.MaxAttempts, "captcha-max-attempts", 3, "The number of verification attempts allowed per challenge")
	flag.DurationVar(&captchaCfg.VerifiedGrace, "captcha-grace", 15*time.Minute, "The amount of time a session stays verified after solving a captcha")

	spreadsheetID := flag.String("spreadsheet-id", os.Getenv("GOOGLE_SPREADSHEET_ID"), "The ID of the Google spreadsheet holding the catalog (defaults to GOOGLE_SPREADSHEET_ID)")
	sheetNames := flag.String("sheet-names", defaultSheetNames, "A comma-separated list of sheet tabs to read; each tab becomes a category")
	flag.Parse()

	catalogStore, err := memory.NewInMemoryBleveCatalog()
	if err != nil {
		return nil, xerrors.Errorf("setting up the catalog store: %w", err)
	}

	fetcher, err := sheets.NewFetcher(sheets.Config{
		SpreadsheetID:       *spreadsheetID,
		SheetNames:          splitSheetNames(*sheetNames),
		ServiceAccountEmail: os.Getenv("GOOGLE_CLIENT_EMAIL"),
		PrivateKey:          []byte(os.Getenv("GOOGLE_PRIVATE_KEY")),
		Logger:              logger.WithField("component", "sheets"),
	})
	if err != nil {
		return nil, xerrors.Errorf("setting up the spreadsheet fetcher: %w", err)
	}

	captchaCfg.Logger = logger.WithField("component", "captcha")
	captchaStore, err := captcha.NewStore(captchaCfg)
	if err != nil {
		return nil, xerrors.Errorf("setting up the captcha store: %w", err)
	}

	var svc service.Service
	var svcGroup service.Group

	frontendCfg.CatalogAPI = catalogStore
	frontendCfg.CaptchaAPI = captchaStore
	frontendCfg.Categories = splitSheetNames(*sheetNames)
	frontendCfg.Logger = logger.WithField("service", "front-end")
	if svc, err = frontend.NewService(frontendCfg); err == nil {
		svcGroup = append(svcGroup, svc)
	} else {
		return nil, err
	}

	refresherCfg.CatalogAPI = catalogStore
	refresherCfg.SheetsAPI = fetcher
	refresherCfg.Logger = logger.WithField("service", "refresher")
	if svc, err = refresher.NewService(refresherCfg); err == nil {
		svcGroup = append(svcGroup, svc)
	} else {
		return nil, err
	}

	janitorCfg.Sweeper = captchaStore
	janitorCfg.Logger = logger.WithField("service", "janitor")
	if svc, err = janitor.NewService(janitorCfg); err == nil {
		svcGroup = append(svcGroup, svc)
	} else {
		return nil, err
	}

	return svcGroup, nil
}

func splitSheetNames(csv string) []string {
	var names []string
	for _, name := range strings.Split(csv, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
