package refresher

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/juju/clock/testclock"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"

	"github.com/buscalibros/buscalibros/catalog"
	"github.com/buscalibros/buscalibros/service/refresher/mocks"
)

const updateInterval = 30 * time.Minute

var _ = gc.Suite(new(RefresherTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type RefresherTestSuite struct {
	mockCtrl    *gomock.Controller
	mockCatalog *mocks.MockCatalogAPI
	mockSheets  *mocks.MockSheetsAPI
	clk         *testclock.Clock
}

func (s *RefresherTestSuite) SetUpTest(c *gc.C) {
	s.mockCtrl = gomock.NewController(c)
	s.mockCatalog = mocks.NewMockCatalogAPI(s.mockCtrl)
	s.mockSheets = mocks.NewMockSheetsAPI(s.mockCtrl)
	s.clk = testclock.NewClock(time.Now())
}

func (s *RefresherTestSuite) TearDownTest(c *gc.C) {
	s.mockCtrl.Finish()
}

func (s *RefresherTestSuite) newService(c *gc.C) *Service {
	svc, err := NewService(Config{
		CatalogAPI:     s.mockCatalog,
		SheetsAPI:      s.mockSheets,
		Clock:          s.clk,
		UpdateInterval: updateInterval,
	})
	c.Assert(err, gc.IsNil)
	return svc
}

func (s *RefresherTestSuite) TestConfigValidation(c *gc.C) {
	_, err := NewService(Config{SheetsAPI: s.mockSheets, UpdateInterval: updateInterval})
	c.Assert(err, gc.ErrorMatches, "(?ms).*catalog API has not been provided.*")

	_, err = NewService(Config{CatalogAPI: s.mockCatalog, UpdateInterval: updateInterval})
	c.Assert(err, gc.ErrorMatches, "(?ms).*sheets API has not been provided.*")

	_, err = NewService(Config{CatalogAPI: s.mockCatalog, SheetsAPI: s.mockSheets})
	c.Assert(err, gc.ErrorMatches, "(?ms).*invalid value for update interval.*")
}

func (s *RefresherTestSuite) TestPeriodicRefresh(c *gc.C) {
	books := []*catalog.Book{
		{ID: uuid.New(), Title: "Cien Años de Soledad", Category: "LIT. ADULTO"},
	}

	firstDoneCh := make(chan struct{})
	secondDoneCh := make(chan struct{})
	gomock.InOrder(
		s.mockSheets.EXPECT().Fetch(gomock.Any()).Return(books, nil),
		s.mockSheets.EXPECT().Fetch(gomock.Any()).Return(books, nil),
	)
	gomock.InOrder(
		s.mockCatalog.EXPECT().ReplaceAll(books).DoAndReturn(func([]*catalog.Book) error {
			close(firstDoneCh)
			return nil
		}),
		s.mockCatalog.EXPECT().ReplaceAll(books).DoAndReturn(func([]*catalog.Book) error {
			close(secondDoneCh)
			return nil
		}),
	)

	ctx, cancelFn := context.WithCancel(context.TODO())
	doneCh := make(chan error)
	go func() { doneCh <- s.newService(c).Run(ctx) }()

	// The catalog gets populated once at startup, without waiting for the
	// first tick.
	<-firstDoneCh

	c.Assert(s.clk.WaitAdvance(updateInterval, 10*time.Second, 1), gc.IsNil)
	<-secondDoneCh

	cancelFn()
	c.Assert(<-doneCh, gc.IsNil)
}

func (s *RefresherTestSuite) TestFetchFailuresAreNotFatal(c *gc.C) {
	books := []*catalog.Book{
		{ID: uuid.New(), Title: "El Principito", Category: "LIT. INFANTIL"},
	}

	firstFetchCh := make(chan struct{})
	gomock.InOrder(
		s.mockSheets.EXPECT().Fetch(gomock.Any()).DoAndReturn(func(context.Context) ([]*catalog.Book, error) {
			close(firstFetchCh)
			return nil, xerrors.Errorf("quota exceeded")
		}),
		s.mockSheets.EXPECT().Fetch(gomock.Any()).Return(books, nil),
	)

	replacedCh := make(chan struct{})
	s.mockCatalog.EXPECT().ReplaceAll(books).DoAndReturn(func([]*catalog.Book) error {
		close(replacedCh)
		return nil
	})

	ctx, cancelFn := context.WithCancel(context.TODO())
	doneCh := make(chan error)
	go func() { doneCh <- s.newService(c).Run(ctx) }()

	<-firstFetchCh

	c.Assert(s.clk.WaitAdvance(updateInterval, 10*time.Second, 1), gc.IsNil)
	<-replacedCh

	cancelFn()
	c.Assert(<-doneCh, gc.IsNil)
}

func (s *RefresherTestSuite) TestReplaceFailureIsFatal(c *gc.C) {
	s.mockSheets.EXPECT().Fetch(gomock.Any()).Return(nil, nil)
	s.mockCatalog.EXPECT().ReplaceAll(gomock.Nil()).Return(xerrors.Errorf("index swap failed"))

	err := s.newService(c).Run(context.TODO())
	c.Assert(err, gc.ErrorMatches, "(?ms).*unable to replace catalog contents: index swap failed.*")
}
