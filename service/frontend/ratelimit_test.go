package frontend

import (
	"fmt"
	"net/http/httptest"
	"time"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RateLimitTestSuite))

type RateLimitTestSuite struct {
}

func (s *RateLimitTestSuite) TestPerClientBuckets(c *gc.C) {
	cl := newClientLimiter(1)

	c.Assert(cl.allow("10.0.0.1"), gc.Equals, true)
	c.Assert(cl.allow("10.0.0.1"), gc.Equals, false)

	// Other clients keep their own budget.
	c.Assert(cl.allow("10.0.0.2"), gc.Equals, true)
}

func (s *RateLimitTestSuite) TestStaleClientsAreSwept(c *gc.C) {
	now := time.Now()
	cl := newClientLimiter(1)
	cl.now = func() time.Time { return now }

	for i := 0; i < 64; i++ {
		cl.allow(fmt.Sprintf("10.0.0.%d", i))
	}
	c.Assert(cl.clients, gc.HasLen, 64)

	// After the stale window every earlier bucket has fully refilled and
	// gets dropped; only the latest caller's bucket remains.
	now = now.Add(staleClientAfter + time.Second)
	c.Assert(cl.allow("10.0.1.1"), gc.Equals, true)
	c.Assert(cl.clients, gc.HasLen, 1)
}

func (s *RateLimitTestSuite) TestClientIPExtraction(c *gc.C) {
	req := httptest.NewRequest("GET", "/search", nil)
	req.RemoteAddr = "10.0.0.1:40000"
	c.Assert(clientIP(req), gc.Equals, "10.0.0.1")

	// A reverse proxy injects the originating address first.
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	c.Assert(clientIP(req), gc.Equals, "203.0.113.9")
}
