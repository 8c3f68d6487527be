package layout

import "math"

// TextMetrics describes unrotated multi-line text in pixels. Ascent and
// Descent are measured from the baseline; LineHeight separates consecutive
// baselines.
type TextMetrics struct {
	Width      float64
	Ascent     float64
	Descent    float64
	LineHeight float64
	Lines      int
}

// Box rotates the text rectangle counter-clockwise by angle degrees around the
// first baseline origin and returns its corners.
func (m TextMetrics) Box(angle int) BoundingBox {
	lines := m.Lines
	if lines < 1 {
		lines = 1
	}
	top := -m.Ascent
	bottom := m.Descent + float64(lines-1)*m.LineHeight
	corners := [4][2]float64{
		{0, bottom},
		{m.Width, bottom},
		{m.Width, top},
		{0, top},
	}

	sin, cos := math.Sincos(float64(angle) * math.Pi / 180)
	var box BoundingBox
	for i, c := range corners {
		// y 轴向下，逆时针旋转需要对 sin 取反
		x := cos*c[0] + sin*c[1]
		y := -sin*c[0] + cos*c[1]
		box.X[i] = int(math.Round(x))
		box.Y[i] = int(math.Round(y))
	}
	return box
}
