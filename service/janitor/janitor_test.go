package janitor

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/juju/clock/testclock"
	gc "gopkg.in/check.v1"

	"github.com/buscalibros/buscalibros/service/janitor/mocks"
)

const sweepInterval = time.Minute

var _ = gc.Suite(new(JanitorTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type JanitorTestSuite struct {
	mockCtrl    *gomock.Controller
	mockSweeper *mocks.MockSweeper
	clk         *testclock.Clock
}

func (s *JanitorTestSuite) SetUpTest(c *gc.C) {
	s.mockCtrl = gomock.NewController(c)
	s.mockSweeper = mocks.NewMockSweeper(s.mockCtrl)
	s.clk = testclock.NewClock(time.Now())
}

func (s *JanitorTestSuite) TearDownTest(c *gc.C) {
	s.mockCtrl.Finish()
}

func (s *JanitorTestSuite) TestConfigValidation(c *gc.C) {
	_, err := NewService(Config{SweepInterval: sweepInterval})
	c.Assert(err, gc.ErrorMatches, "(?ms).*sweeper has not been provided.*")

	_, err = NewService(Config{Sweeper: s.mockSweeper})
	c.Assert(err, gc.ErrorMatches, "(?ms).*invalid value for sweep interval.*")
}

func (s *JanitorTestSuite) TestPeriodicSweep(c *gc.C) {
	svc, err := NewService(Config{
		Sweeper:       s.mockSweeper,
		Clock:         s.clk,
		SweepInterval: sweepInterval,
	})
	c.Assert(err, gc.IsNil)

	firstSweepCh := make(chan struct{})
	secondSweepCh := make(chan struct{})
	gomock.InOrder(
		s.mockSweeper.EXPECT().CleanExpired().DoAndReturn(func() int {
			close(firstSweepCh)
			return 2
		}),
		s.mockSweeper.EXPECT().CleanExpired().DoAndReturn(func() int {
			close(secondSweepCh)
			return 0
		}),
	)

	ctx, cancelFn := context.WithCancel(context.TODO())
	doneCh := make(chan error)
	go func() { doneCh <- svc.Run(ctx) }()

	c.Assert(s.clk.WaitAdvance(sweepInterval, 10*time.Second, 1), gc.IsNil)
	<-firstSweepCh

	c.Assert(s.clk.WaitAdvance(sweepInterval, 10*time.Second, 1), gc.IsNil)
	<-secondSweepCh

	cancelFn()
	c.Assert(<-doneCh, gc.IsNil)
}
