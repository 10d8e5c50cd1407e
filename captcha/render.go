package captcha

import (
	"bytes"
	"encoding/base64"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/xerrors"
)

const (
	imgWidth  = 160
	imgHeight = 60

	fontSize    = 32
	noisePoints = 50
	noiseLines  = 3
	maxJitter   = 5

	dataURIPrefix = "data:image/png;base64,"
)

var (
	backgroundColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	noisePointColor = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	noiseLineColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}

	// The palette used for rendering individual digits.
	digitPalette = []color.RGBA{
		{R: 0, G: 0, B: 0, A: 255},
		{R: 50, G: 50, B: 50, A: 255},
		{R: 100, G: 100, B: 100, A: 255},
	}
)

// ImageRenderer renders challenge codes as 160x60 PNG images encoded as data
// URIs. The rendered image contains the code digits over a light background
// with single-pixel noise and a few straight noise lines overlaid to resist
// naive automated reading.
type ImageRenderer struct {
	parseOnce sync.Once
	fnt       *opentype.Font
	parseErr  error

	// opentype faces are not safe for concurrent use; each render borrows
	// one from the pool so renders for different sessions can proceed in
	// parallel.
	facePool sync.Pool
}

// NewImageRenderer creates a renderer backed by the embedded Go fonts.
func NewImageRenderer() *ImageRenderer {
	return &ImageRenderer{}
}

// Render implements Renderer.
func (r *ImageRenderer) Render(sessionKey, code string) (string, error) {
	face, err := r.acquireFace()
	if err != nil {
		return "", xerrors.Errorf("load font: %w", err)
	}
	defer r.facePool.Put(face)

	rng := rand.New(rand.NewSource(renderSeed(sessionKey)))

	img := image.NewRGBA(image.Rect(0, 0, imgWidth, imgHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	for i := 0; i < noisePoints; i++ {
		img.Set(rng.Intn(imgWidth), rng.Intn(imgHeight), noisePointColor)
	}

	// Center the digit group horizontally and nudge each digit by a small
	// random vertical offset.
	metrics := face.Metrics()
	textWidth := font.MeasureString(face, code).Ceil()
	textHeight := (metrics.Ascent + metrics.Descent).Ceil()
	x := (imgWidth - textWidth) / 2
	baseline := (imgHeight-textHeight)/2 + metrics.Ascent.Ceil()

	for _, digit := range code {
		jitter := rng.Intn(2*maxJitter+1) - maxJitter
		drawer := &font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(digitPalette[rng.Intn(len(digitPalette))]),
			Face: face,
			Dot:  fixed.P(x, baseline+jitter),
		}
		drawer.DrawString(string(digit))

		advance, ok := face.GlyphAdvance(digit)
		if !ok {
			return "", xerrors.Errorf("font provides no glyph for %q", digit)
		}
		x += advance.Ceil()
	}

	for i := 0; i < noiseLines; i++ {
		drawLine(img,
			image.Pt(rng.Intn(imgWidth), rng.Intn(imgHeight)),
			image.Pt(rng.Intn(imgWidth), rng.Intn(imgHeight)),
			noiseLineColor,
		)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", xerrors.Errorf("encode png: %w", err)
	}

	return dataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// acquireFace returns a face that the caller may draw with exclusively until
// it is returned to the pool. The embedded font is parsed once; faces are
// minted on demand when the pool runs dry.
func (r *ImageRenderer) acquireFace() (font.Face, error) {
	r.parseOnce.Do(func() {
		r.fnt, r.parseErr = opentype.Parse(gobold.TTF)
	})
	if r.parseErr != nil {
		return nil, r.parseErr
	}

	if face, ok := r.facePool.Get().(font.Face); ok {
		return face, nil
	}
	return opentype.NewFace(r.fnt, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// renderSeed derives a fresh seed for each render call by mixing the
// high-resolution clock with a hash of the session key, so rapid successive
// calls never produce correlated output.
func renderSeed(sessionKey string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sessionKey))
	return time.Now().UnixNano() ^ int64(h.Sum64())
}

// drawLine renders a one-pixel straight line between two points by stepping
// along the longer axis.
func drawLine(img draw.Image, from, to image.Point, c color.Color) {
	dx, dy := to.X-from.X, to.Y-from.Y
	steps := abs(dx)
	if abs(dy) > steps {
		steps = abs(dy)
	}
	if steps == 0 {
		img.Set(from.X, from.Y, c)
		return
	}
	for i := 0; i <= steps; i++ {
		x := from.X + dx*i/steps
		y := from.Y + dy*i/steps
		img.Set(x, y, c)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
