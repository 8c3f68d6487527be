// Package compose turns a render request into an encoded PNG: it measures the
// text, allocates the canvas, fills the background and draws the glyphs.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"github.com/ByLCY/textimage/layout"
	"github.com/ByLCY/textimage/renderer"
)

// ErrEncodeFailure reports that the final image could not be serialized.
var ErrEncodeFailure = errors.New("encode failure")

// ErrCanvasTooLarge reports a canvas beyond layout.MaxDimension or layout.MaxPixels.
var ErrCanvasTooLarge = fmt.Errorf("%w: canvas too large", layout.ErrInvalidInput)

// Composer builds images on top of a GlyphRenderer.
type Composer struct {
	glyphs renderer.GlyphRenderer
}

// New returns a Composer drawing with glyphs.
func New(glyphs renderer.GlyphRenderer) *Composer {
	return &Composer{glyphs: glyphs}
}

// Measure returns the bounding box of req.Text as it will be drawn.
func (c *Composer) Measure(req layout.Request, fontPath string) (layout.BoundingBox, error) {
	box, err := c.glyphs.Measure(fontPath, req.SizePt, req.Angle, req.Text)
	if err != nil {
		return layout.BoundingBox{}, fmt.Errorf("测量文本失败: %w", err)
	}
	return box, nil
}

// Compose allocates the canvas and draws req.Text onto it. A configured
// width or height wins over the measured box; each side is at least 1px.
func (c *Composer) Compose(req layout.Request, fontPath string, box layout.BoundingBox) (*image.NRGBA, error) {
	w, h := box.Width(), box.Height()
	if req.MaxWidth != nil {
		w = *req.MaxWidth
	}
	if req.MaxHeight != nil {
		h = *req.MaxHeight
	}
	w, h = max(w, 1), max(h, 1)
	if w > layout.MaxDimension || h > layout.MaxDimension || w*h > layout.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrCanvasTooLarge, w, h)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	// 填充背景时不做混合，透明背景保持 alpha 为 0
	var fill color.Color = color.NRGBA{}
	if !req.Background.Transparent {
		fill = req.Background.Color.NRGBA()
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{}, draw.Src)

	if err := c.glyphs.Rasterize(img, fontPath, req.SizePt, req.Angle, 0, req.Baseline(), req.Colour.NRGBA(), req.Text); err != nil {
		return nil, fmt.Errorf("绘制文本失败: %w", err)
	}
	return img, nil
}

// Encode serializes img as PNG.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailure, err)
	}
	return buf.Bytes(), nil
}

// Render runs the whole pipeline: wrap, measure, compose and encode.
// The returned box is the measured extent of the (wrapped) text.
func (c *Composer) Render(req layout.Request, fontPath string) ([]byte, layout.BoundingBox, error) {
	if req.Wraps() {
		lines, err := c.wrap(req, fontPath)
		if err != nil {
			return nil, layout.BoundingBox{}, err
		}
		req.Text = strings.Join(lines, "\n")
	}
	box, err := c.Measure(req, fontPath)
	if err != nil {
		return nil, layout.BoundingBox{}, err
	}
	img, err := c.Compose(req, fontPath, box)
	if err != nil {
		return nil, layout.BoundingBox{}, err
	}
	data, err := Encode(img)
	if err != nil {
		return nil, layout.BoundingBox{}, err
	}
	return data, box, nil
}

// wrap 以 0 度测量行宽，旋转不影响换行结果。
func (c *Composer) wrap(req layout.Request, fontPath string) ([]string, error) {
	var measureErr error
	measure := func(line string) int {
		if measureErr != nil {
			return 0
		}
		box, err := c.glyphs.Measure(fontPath, req.SizePt, 0, line)
		if err != nil {
			measureErr = err
			return 0
		}
		return box.Width()
	}
	lines := layout.Wrap(req.Text, *req.MaxWidth, measure)
	if measureErr != nil {
		return nil, fmt.Errorf("换行测量失败: %w", measureErr)
	}
	return lines, nil
}
