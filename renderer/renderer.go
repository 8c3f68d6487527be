package renderer

import (
	"errors"
	"image/color"
	"image/draw"

	"github.com/ByLCY/textimage/layout"
)

// ErrUnsupportedEnvironment reports that a glyph engine cannot rasterize text
// in the current process (for example its built-in font fails to load).
var ErrUnsupportedEnvironment = errors.New("unsupported environment")

// GlyphRenderer 负责字形测量与光栅化，具体实现由字体库提供。
// sizePt 为 em 高度（像素），angle 为逆时针角度；x, y 为首行基线起点。
// text 可以包含 '\n'，多行按字体行高依次向下排列。
type GlyphRenderer interface {
	// Name identifies the engine; it is part of every cache fingerprint.
	Name() string
	// Check verifies the engine can load a font and measure text.
	Check() error
	Measure(fontPath string, sizePt, angle int, text string) (layout.BoundingBox, error)
	Rasterize(dst draw.Image, fontPath string, sizePt, angle, x, y int, col color.Color, text string) error
	// Forget drops any parsed copy of the font so the next call reloads it.
	Forget(fontPath string)
}
