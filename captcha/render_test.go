package captcha

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"
	"sync"

	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RendererTestSuite))

type RendererTestSuite struct {
	renderer *ImageRenderer
}

func (s *RendererTestSuite) SetUpTest(c *gc.C) {
	s.renderer = NewImageRenderer()
}

func (s *RendererTestSuite) TestRenderProducesDecodablePNG(c *gc.C) {
	dataURI, err := s.renderer.Render("session-0", "4821")
	c.Assert(err, gc.IsNil)
	s.assertDecodable(c, dataURI)
}

func (s *RendererTestSuite) TestSuccessiveRendersDiffer(c *gc.C) {
	first, err := s.renderer.Render("session-0", "4821")
	c.Assert(err, gc.IsNil)
	second, err := s.renderer.Render("session-1", "4821")
	c.Assert(err, gc.IsNil)

	c.Assert(first == second, gc.Equals, false,
		gc.Commentf("two renders of the same code produced identical images"))
}

func (s *RendererTestSuite) TestConcurrentRendersForDistinctSessions(c *gc.C) {
	var (
		wg      sync.WaitGroup
		startCh = make(chan struct{})
		results = make([]string, 8)
		errs    = make([]error, 8)
	)
	for i := 0; i < len(errs); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-startCh
			results[i], errs[i] = s.renderer.Render(fmt.Sprintf("session-%d", i), "0123")
		}(i)
	}
	close(startCh)
	wg.Wait()

	for i := range errs {
		c.Assert(errs[i], gc.IsNil)
		s.assertDecodable(c, results[i])
	}
}

func (s *RendererTestSuite) TestFacesAreMintedPerRender(c *gc.C) {
	// Holding on to one face must not prevent acquiring another; a single
	// shared face would force renders for different sessions to serialize.
	first, err := s.renderer.acquireFace()
	c.Assert(err, gc.IsNil)
	second, err := s.renderer.acquireFace()
	c.Assert(err, gc.IsNil)
	c.Assert(first != second, gc.Equals, true,
		gc.Commentf("acquireFace handed out the same face twice"))

	s.renderer.facePool.Put(first)
	s.renderer.facePool.Put(second)
}

func (s *RendererTestSuite) assertDecodable(c *gc.C, dataURI string) {
	c.Assert(strings.HasPrefix(dataURI, "data:image/png;base64,"), gc.Equals, true)

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURI, "data:image/png;base64,"))
	c.Assert(err, gc.IsNil)

	img, err := png.Decode(bytes.NewReader(raw))
	c.Assert(err, gc.IsNil)
	c.Assert(img.Bounds().Dx(), gc.Equals, 160)
	c.Assert(img.Bounds().Dy(), gc.Equals, 60)
}
