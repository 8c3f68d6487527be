// Package otrenderer is a glyph engine built on golang.org/x/image.
// Upright text is drawn with font.Drawer; rotated text is drawn into a
// scratch image first and composited through an affine transform.
package otrenderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"github.com/ByLCY/textimage/fonts"
	"github.com/ByLCY/textimage/layout"
	"github.com/ByLCY/textimage/renderer"
)

// Name is the engine identifier used in cache fingerprints.
const Name = "opentype"

// Renderer implements renderer.GlyphRenderer with golang.org/x/image/font/opentype.
type Renderer struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font // by font path
}

var _ renderer.GlyphRenderer = (*Renderer)(nil)

// NewRenderer creates an opentype glyph renderer.
func NewRenderer() *Renderer {
	return &Renderer{fonts: map[string]*opentype.Font{}}
}

// Name implements renderer.GlyphRenderer.
func (r *Renderer) Name() string { return Name }

// Check loads the built-in font and measures a sample string.
func (r *Renderer) Check() error {
	box, err := r.Measure(fonts.DefaultBuiltin, 12, 0, "Ag")
	if err != nil {
		return fmt.Errorf("%w: %v", renderer.ErrUnsupportedEnvironment, err)
	}
	if box.Width() <= 0 || box.Height() <= 0 {
		return fmt.Errorf("%w: 字体度量为空", renderer.ErrUnsupportedEnvironment)
	}
	return nil
}

// Measure implements renderer.GlyphRenderer.
func (r *Renderer) Measure(fontPath string, sizePt, angle int, text string) (layout.BoundingBox, error) {
	face, err := r.newFace(fontPath, sizePt)
	if err != nil {
		return layout.BoundingBox{}, err
	}
	defer face.Close()
	return textMetrics(face, splitLines(text)).Box(angle), nil
}

// Rasterize implements renderer.GlyphRenderer.
func (r *Renderer) Rasterize(dst draw.Image, fontPath string, sizePt, angle, x, y int, col color.Color, text string) error {
	face, err := r.newFace(fontPath, sizePt)
	if err != nil {
		return err
	}
	defer face.Close()

	lines := splitLines(text)
	if angle%360 == 0 {
		drawLines(dst, face, col, x, y, lines)
		return nil
	}

	m := textMetrics(face, lines)
	ascent := int(m.Ascent)
	w := int(m.Width)
	h := ascent + int(m.Descent) + (len(lines)-1)*int(m.LineHeight)
	if w <= 0 || h <= 0 {
		return nil
	}
	scratch := image.NewRGBA(image.Rect(0, 0, w, h))
	drawLines(scratch, face, col, 0, ascent, lines)

	// 源图中 (sx, sy) 相对基线原点为 (sx, sy-ascent)，逆时针旋转后平移到 (x, y)
	sin, cos := math.Sincos(float64(angle) * math.Pi / 180)
	a := float64(ascent)
	s2d := f64.Aff3{
		cos, sin, float64(x) - sin*a,
		-sin, cos, float64(y) - cos*a,
	}
	xdraw.BiLinear.Transform(dst, s2d, scratch, scratch.Bounds(), xdraw.Over, nil)
	return nil
}

// Forget drops the parsed font for fontPath.
func (r *Renderer) Forget(fontPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.fonts, fontPath)
}

func (r *Renderer) newFace(fontPath string, sizePx int) (font.Face, error) {
	if sizePx <= 0 {
		return nil, fmt.Errorf("字号必须为正数，实际 %d", sizePx)
	}
	f, err := r.parsed(fontPath)
	if err != nil {
		return nil, err
	}
	// 72 DPI 下 1pt = 1px
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(sizePx),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("创建字体面失败: %w", err)
	}
	return face, nil
}

func (r *Renderer) parsed(fontPath string) (*opentype.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.fonts[fontPath]; ok {
		return f, nil
	}
	data, err := fonts.Load(fontPath)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析字体 %s 失败: %v", fonts.ErrFontUnavailable, fontPath, err)
	}
	r.fonts[fontPath] = f
	return f, nil
}

func drawLines(dst draw.Image, face font.Face, col color.Color, x, y int, lines []string) {
	lineHeight := fixed.I(face.Metrics().Height.Ceil())
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: face}
	for i, line := range lines {
		if line == "" {
			continue
		}
		d.Dot = fixed.Point26_6{
			X: fixed.I(x),
			Y: fixed.I(y) + lineHeight*fixed.Int26_6(i),
		}
		d.DrawString(line)
	}
}

func textMetrics(face font.Face, lines []string) layout.TextMetrics {
	metrics := face.Metrics()
	width := 0
	for _, line := range lines {
		if w := font.MeasureString(face, line).Ceil(); w > width {
			width = w
		}
	}
	return layout.TextMetrics{
		Width:      float64(width),
		Ascent:     float64(metrics.Ascent.Ceil()),
		Descent:    float64(metrics.Descent.Ceil()),
		LineHeight: float64(metrics.Height.Ceil()),
		Lines:      len(lines),
	}
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
