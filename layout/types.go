package layout

// 该文件定义渲染请求与几何结果，供缓存指纹、合成与调试 JSON 共用。

// Color 采用 8 位 RGB 通道，不单独保存 alpha。
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Black is the default text colour.
var Black = Color{}

// Background is either an opaque RGB fill or the transparent sentinel.
type Background struct {
	Transparent bool  `json:"transparent"`
	Color       Color `json:"color"`
}

// Transparent means "no background fill"; it never equals an Opaque value.
var Transparent = Background{Transparent: true}

// Opaque returns a solid background of colour c.
func Opaque(c Color) Background { return Background{Color: c} }

// String 用于指纹与日志。
func (b Background) String() string {
	if b.Transparent {
		return "transparent"
	}
	return b.Color.Hex()
}

// Request holds every parameter that affects the rendered pixels.
// A Request is built fresh for each render and never mutated afterwards.
type Request struct {
	Text       string     `json:"text"`
	Font       string     `json:"font"`
	FontDir    string     `json:"fontDir,omitempty"`
	Engine     string     `json:"engine"`
	SizePt     int        `json:"sizePt"`
	Angle      int        `json:"angle"`
	MaxWidth   *int       `json:"maxWidth,omitempty"`
	MaxHeight  *int       `json:"maxHeight,omitempty"`
	Wrap       bool       `json:"wrap"`
	Colour     Color      `json:"colour"`
	Background Background `json:"background"`
}

// Baseline 返回首行基线距画布顶部的像素偏移：size + size/5（整数除法）。
func (r Request) Baseline() int { return r.SizePt + r.SizePt/5 }

// Wraps reports whether line wrapping applies: it needs both the flag and a width cap.
func (r Request) Wraps() bool { return r.Wrap && r.MaxWidth != nil && *r.MaxWidth > 0 }

// BoundingBox stores the four corners of the rendered text relative to the
// first baseline origin, in the order lower-left, lower-right, upper-right,
// upper-left. Y grows downwards.
type BoundingBox struct {
	X [4]int `json:"x"`
	Y [4]int `json:"y"`
}

// Width is the horizontal distance between opposite corners.
func (b BoundingBox) Width() int { return abs(b.X[2] - b.X[0]) }

// Height is the vertical distance between opposite corners.
func (b BoundingBox) Height() int { return abs(b.Y[2] - b.Y[0]) }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
