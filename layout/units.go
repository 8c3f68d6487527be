package layout

// Canvas-based engines draw in millimetres. Rendering at one dot per
// millimetre makes one unit one pixel, so font sizes given in pixels must be
// converted to points before creating a face.

// Conversion constants between pt and mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

// FaceSizePt 返回使 em 高度等于 sizePx 个像素（1 像素 = 1 mm）所需的字号（pt）。
func FaceSizePt(sizePx int) float64 { return float64(sizePx) * MmToPt }
