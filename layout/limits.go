package layout

// 画布与字号上限。超出即视为无效输入，避免单次请求分配过量内存。
const (
	// MaxDimension caps the canvas width and height in pixels.
	MaxDimension = 16384
	// MaxPixels caps width*height of one canvas (256 MiB as NRGBA).
	MaxPixels = 1 << 26
	// MaxSizePt caps the em size.
	MaxSizePt = 2048
)
