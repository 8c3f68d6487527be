package canvasrenderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/textimage/fonts"
	"github.com/ByLCY/textimage/layout"
	"github.com/ByLCY/textimage/renderer"
)

// Name is the engine identifier used in cache fingerprints.
const Name = "canvas"

// Renderer measures and rasterizes text via github.com/tdewolff/canvas.
// Canvas units are millimetres; drawing at one dot per millimetre makes one
// unit one pixel.
type Renderer struct {
	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily // by font path
}

var _ renderer.GlyphRenderer = (*Renderer)(nil)

// NewRenderer creates a canvas-based glyph renderer.
func NewRenderer() *Renderer {
	return &Renderer{fontFamilies: map[string]*canvas.FontFamily{}}
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
	face, err := r.fontFace(fontPath, sizePt, color.Black)
	if err != nil {
		return layout.BoundingBox{}, err
	}
	return textMetrics(face, splitLines(text)).Box(angle), nil
}

// Rasterize draws text onto dst with source-over blending. The text is
// rotated counter-clockwise about its first baseline origin (x, y).
func (r *Renderer) Rasterize(dst draw.Image, fontPath string, sizePt, angle, x, y int, col color.Color, text string) error {
	face, err := r.fontFace(fontPath, sizePt, col)
	if err != nil {
		return err
	}
	bounds := dst.Bounds()
	if bounds.Empty() {
		return nil
	}

	c := canvas.New(float64(bounds.Dx()), float64(bounds.Dy()))
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与图像保持左上角为原点

	// CartesianIV 下 y 轴向下，视觉上的逆时针需要取负角度
	ctx.Push()
	ctx.RotateAbout(-float64(angle), float64(x), float64(y))
	lineHeight := face.Metrics().LineHeight
	for i, line := range splitLines(text) {
		if line == "" {
			continue
		}
		baseline := float64(y) + float64(i)*lineHeight
		ctx.DrawText(float64(x), baseline, canvas.NewTextLine(face, line, canvas.Left))
	}
	ctx.Pop()

	img := rasterizer.Draw(c, canvas.DPMM(1.0), canvas.DefaultColorSpace)
	draw.Draw(dst, bounds, img, image.Point{}, draw.Over)
	return nil
}

// Forget drops the cached font family for fontPath.
func (r *Renderer) Forget(fontPath string) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()
	delete(r.fontFamilies, fontPath)
}

func (r *Renderer) fontFace(fontPath string, sizePx int, col color.Color) (*canvas.FontFace, error) {
	if sizePx <= 0 {
		return nil, fmt.Errorf("字号必须为正数，实际 %d", sizePx)
	}
	family, err := r.ensureFontFamily(fontPath)
	if err != nil {
		return nil, err
	}
	return family.Face(layout.FaceSizePt(sizePx), col, canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(fontPath string) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[fontPath]; ok {
		return family, nil
	}
	data, err := fonts.Load(fontPath)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily(fonts.BaseName(fontPath))
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, fmt.Errorf("%w: 解析字体 %s 失败: %v", fonts.ErrFontUnavailable, fontPath, err)
	}
	r.fontFamilies[fontPath] = family
	return family, nil
}

func textMetrics(face *canvas.FontFace, lines []string) layout.TextMetrics {
	metrics := face.Metrics()
	width := 0.0
	for _, line := range lines {
		width = math.Max(width, face.TextWidth(line))
	}
	return layout.TextMetrics{
		Width:      math.Ceil(width),
		Ascent:     math.Ceil(metrics.Ascent),
		Descent:    math.Ceil(math.Abs(metrics.Descent)),
		LineHeight: metrics.LineHeight,
		Lines:      len(lines),
	}
}

func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
