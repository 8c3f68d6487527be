package layout

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var (
	// ErrInvalidInput marks a value that failed validation or coercion.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidColour marks a colour value that cannot be resolved.
	ErrInvalidColour = fmt.Errorf("%w: invalid colour", ErrInvalidInput)
)

// Hex 返回小写的 rrggbb 形式（不带 #）。
func (c Color) Hex() string {
	return fmt.Sprintf("%02x%02x%02x", c.R, c.G, c.B)
}

// NRGBA returns the opaque image/color form of c.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: 0xff}
}

// Resolve normalizes a colour value into a Color. Accepted inputs:
//   - packed integers 0xRRGGBB of any integer kind
//   - hex strings "RGB" or "RRGGBB", with or without a leading '#'
//   - Color, [3]uint8, [3]int or []int with three channels in 0..255
func Resolve(v any) (Color, error) {
	switch c := v.(type) {
	case Color:
		return c, nil
	case string:
		return parseHex(c)
	case [3]uint8:
		return Color{R: c[0], G: c[1], B: c[2]}, nil
	case [3]int:
		return fromChannels(c[:])
	case []int:
		return fromChannels(c)
	case int:
		return fromPacked(int64(c))
	case int32:
		return fromPacked(int64(c))
	case int64:
		return fromPacked(c)
	case uint:
		return fromPacked(int64(c))
	case uint32:
		return fromPacked(int64(c))
	case uint64:
		if c > 0xffffff {
			return Color{}, fmt.Errorf("%w: %#x 超出 24 位范围", ErrInvalidColour, c)
		}
		return fromPacked(int64(c))
	case float64:
		// JSON 数字解码为 float64
		if c != float64(int64(c)) {
			return Color{}, fmt.Errorf("%w: %v 不是整数", ErrInvalidColour, c)
		}
		return fromPacked(int64(c))
	default:
		return Color{}, fmt.Errorf("%w: 不支持的类型 %T", ErrInvalidColour, v)
	}
}

// ResolveBackground is Resolve plus the transparent sentinel: nil, the string
// "transparent" and Transparent itself all mean no fill.
func ResolveBackground(v any) (Background, error) {
	switch b := v.(type) {
	case nil:
		return Transparent, nil
	case Background:
		return b, nil
	case string:
		if strings.EqualFold(strings.TrimSpace(b), "transparent") {
			return Transparent, nil
		}
	}
	c, err := Resolve(v)
	if err != nil {
		return Background{}, err
	}
	return Opaque(c), nil
}

func fromPacked(v int64) (Color, error) {
	if v < 0 || v > 0xffffff {
		return Color{}, fmt.Errorf("%w: %#x 超出 24 位范围", ErrInvalidColour, v)
	}
	return Color{
		R: uint8(v >> 16 & 0xff),
		G: uint8(v >> 8 & 0xff),
		B: uint8(v & 0xff),
	}, nil
}

func fromChannels(ch []int) (Color, error) {
	if len(ch) != 3 {
		return Color{}, fmt.Errorf("%w: 需要 3 个通道，实际 %d 个", ErrInvalidColour, len(ch))
	}
	for _, v := range ch {
		if v < 0 || v > 255 {
			return Color{}, fmt.Errorf("%w: 通道值 %d 超出 0-255", ErrInvalidColour, v)
		}
	}
	return Color{R: uint8(ch[0]), G: uint8(ch[1]), B: uint8(ch[2])}, nil
}

func parseHex(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return Color{}, fmt.Errorf("%w: %q 长度必须为 3 或 6 位", ErrInvalidColour, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q 不是十六进制", ErrInvalidColour, s)
	}
	return fromPacked(int64(v))
}
