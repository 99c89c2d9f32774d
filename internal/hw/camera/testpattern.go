package camera

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/cjeanneret/SenseCam/internal/debug"
)

const defaultJPEGQuality = 80

// TestPattern is a synthetic sensor: a moving gradient with the frame number
// stamped in the corner. It reuses one output buffer, so a Frame it returns
// is overwritten by the next capture just like a hardware frame buffer.
type TestPattern struct {
	size      FrameSize
	format    PixelFormat
	quality   int
	failEvery int

	seq  uint64
	rgba *image.RGBA
	gray *image.Gray
	buf  bytes.Buffer
}

// NewTestPattern creates a test-pattern camera. Only JPEG and grayscale
// output are supported.
func NewTestPattern(cfg Config) (*TestPattern, error) {
	if cfg.PixelFormat != PixelFormatJPEG && cfg.PixelFormat != PixelFormatGrayscale {
		return nil, fmt.Errorf("pixel format %v: %w", cfg.PixelFormat, ErrUnsupported)
	}
	if cfg.FrameSize.Width <= 0 || cfg.FrameSize.Height <= 0 {
		return nil, fmt.Errorf("invalid frame size %v", cfg.FrameSize)
	}
	quality := cfg.JPEGQuality
	if quality <= 0 {
		quality = defaultJPEGQuality
	}

	bounds := image.Rect(0, 0, cfg.FrameSize.Width, cfg.FrameSize.Height)
	t := &TestPattern{
		size:      cfg.FrameSize,
		format:    cfg.PixelFormat,
		quality:   quality,
		failEvery: cfg.FailEvery,
		rgba:      image.NewRGBA(bounds),
	}
	if t.format == PixelFormatGrayscale {
		t.gray = image.NewGray(bounds)
	}
	debug.Verbose("Camera: test pattern %v, format=%v, quality=%d", t.size, t.format, t.quality)
	return t, nil
}

func (t *TestPattern) Framebuffer() (Frame, bool) {
	t.seq++
	if t.failEvery > 0 && t.seq%uint64(t.failEvery) == 0 {
		return Frame{}, false
	}

	t.render()
	t.buf.Reset()

	switch t.format {
	case PixelFormatJPEG:
		if err := jpeg.Encode(&t.buf, t.rgba, &jpeg.Options{Quality: t.quality}); err != nil {
			debug.Errorf("Camera: encode test pattern: %v", err)
			return Frame{}, false
		}
	case PixelFormatGrayscale:
		draw.Draw(t.gray, t.gray.Bounds(), t.rgba, image.Point{}, draw.Src)
		t.buf.Write(t.gray.Pix)
	}

	return Frame{
		Data:   t.buf.Bytes(),
		Width:  t.size.Width,
		Height: t.size.Height,
		Format: t.format,
	}, true
}

// Captures returns how many captures were attempted.
func (t *TestPattern) Captures() uint64 {
	return t.seq
}

func (t *TestPattern) Close() error {
	return nil
}

func (t *TestPattern) render() {
	w, h := t.size.Width, t.size.Height
	shift := int(t.seq * 4)
	for y := 0; y < h; y++ {
		row := t.rgba.Pix[y*t.rgba.Stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			row[i] = uint8((x + shift) * 255 / w)
			row[i+1] = uint8(y * 255 / h)
			row[i+2] = uint8(255 - (x+shift)*255/w)
			row[i+3] = 0xff
		}
	}

	d := &font.Drawer{
		Dst:  t.rgba,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 14),
	}
	d.DrawString(fmt.Sprintf("#%d %dx%d", t.seq, w, h))
}
