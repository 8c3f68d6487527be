package imagegen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ByLCY/textimage/fonts"
	"github.com/ByLCY/textimage/layout"
)

// Config is the mutable render configuration. Setters validate their input
// and leave the field untouched on error.
type Config struct {
	FontDirectory  string
	Font           string
	SizePt         int
	Angle          int
	MaxWidth       *int
	MaxHeight      *int
	Wrap           bool
	Colour         layout.Color
	Background     layout.Background
	CacheEnabled   bool
	CacheDirectory string
}

// DefaultConfig returns the out-of-the-box configuration.
func DefaultConfig() Config {
	return Config{
		FontDirectory:  "./fonts/",
		Font:           "arial.ttf",
		SizePt:         12,
		Colour:         layout.Black,
		Background:     layout.Transparent,
		CacheEnabled:   true,
		CacheDirectory: "./cache/",
	}
}

// Clone returns a deep copy; the width and height caps are not shared.
func (c Config) Clone() Config {
	c.MaxWidth = clonePtr(c.MaxWidth)
	c.MaxHeight = clonePtr(c.MaxHeight)
	return c
}

func fontDirKey(dir, font string) string {
	if fonts.IsBuiltin(font) {
		return ""
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}

func clonePtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Request snapshots the configuration into an immutable render request.
// The font directory is recorded in absolute form so that equally named fonts
// from different directories never share cache entries.
func (c Config) Request(text, engine string) layout.Request {
	font := fonts.Normalize(c.Font)
	return layout.Request{
		Text:       text,
		Font:       font,
		FontDir:    fontDirKey(c.FontDirectory, font),
		Engine:     engine,
		SizePt:     c.SizePt,
		Angle:      c.Angle,
		MaxWidth:   clonePtr(c.MaxWidth),
		MaxHeight:  clonePtr(c.MaxHeight),
		Wrap:       c.Wrap,
		Colour:     c.Colour,
		Background: c.Background,
	}
}

// SetFont selects the font; ".ttf" is appended when name has no extension.
func (c *Config) SetFont(name string) error {
	name = fonts.Normalize(name)
	if name == "" {
		return fmt.Errorf("%w: 字体名为空", ErrInvalidInput)
	}
	c.Font = name
	return nil
}

func (c *Config) SetFontDirectory(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: 字体目录为空", ErrInvalidInput)
	}
	c.FontDirectory = dir
	return nil
}

// SetFontSize sets the em size in pixels. Without strict, v is cast to an
// integer the lenient way (see layout.ToInt).
func (c *Config) SetFontSize(v any, strict bool) error {
	size, err := layout.ToInt(v, strict)
	if err != nil {
		return fmt.Errorf("设置字号失败: %w", err)
	}
	if err := checkSize(size); err != nil {
		return err
	}
	c.SizePt = size
	return nil
}

// SetFontAngle sets the counter-clockwise rotation in degrees.
func (c *Config) SetFontAngle(v any, strict bool) error {
	angle, err := layout.ToInt(v, strict)
	if err != nil {
		return fmt.Errorf("设置角度失败: %w", err)
	}
	c.Angle = angle
	return nil
}

// SetSize sets the canvas caps. A nil value leaves that dimension to be
// derived from the text bounding box.
func (c *Config) SetSize(width, height any, strict bool) error {
	w, err := optionalDimension("宽度", width, strict)
	if err != nil {
		return err
	}
	h, err := optionalDimension("高度", height, strict)
	if err != nil {
		return err
	}
	c.MaxWidth, c.MaxHeight = w, h
	return nil
}

func optionalDimension(label string, v any, strict bool) (*int, error) {
	if v == nil {
		return nil, nil
	}
	if p, ok := v.(*int); ok {
		if p == nil {
			return nil, nil
		}
		v = *p
	}
	n, err := layout.ToInt(v, strict)
	if err != nil {
		return nil, fmt.Errorf("设置%s失败: %w", label, err)
	}
	if err := checkDimension(label, n); err != nil {
		return nil, err
	}
	return &n, nil
}

func checkSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: 字号必须为正数，实际 %d", ErrInvalidInput, size)
	}
	if size > layout.MaxSizePt {
		return fmt.Errorf("%w: 字号 %d 超过上限 %d", ErrInvalidInput, size, layout.MaxSizePt)
	}
	return nil
}

func checkDimension(label string, n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %s必须为正数，实际 %d", ErrInvalidInput, label, n)
	}
	if n > layout.MaxDimension {
		return fmt.Errorf("%w: %s %d 超过上限 %d", ErrInvalidInput, label, n, layout.MaxDimension)
	}
	return nil
}

func (c *Config) SetColour(v any) error {
	col, err := layout.Resolve(v)
	if err != nil {
		return fmt.Errorf("设置文字颜色失败: %w", err)
	}
	c.Colour = col
	return nil
}

// SetBackground accepts every colour form plus nil or "transparent".
func (c *Config) SetBackground(v any) error {
	bg, err := layout.ResolveBackground(v)
	if err != nil {
		return fmt.Errorf("设置背景失败: %w", err)
	}
	c.Background = bg
	return nil
}

// UseWrapping toggles word wrapping; it only applies when a width is set.
func (c *Config) UseWrapping(on bool) { c.Wrap = on }

func (c *Config) CacheEnable(on bool) { c.CacheEnabled = on }

func (c *Config) SetCacheDirectory(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: 缓存目录为空", ErrInvalidInput)
	}
	c.CacheDirectory = dir
	return nil
}

// Validate checks a Config built without the setters, e.g. from a file.
func (c Config) Validate() error {
	if strings.TrimSpace(c.FontDirectory) == "" {
		return fmt.Errorf("%w: 字体目录为空", ErrInvalidInput)
	}
	if fonts.Normalize(c.Font) == "" {
		return fmt.Errorf("%w: 字体名为空", ErrInvalidInput)
	}
	if err := checkSize(c.SizePt); err != nil {
		return err
	}
	if c.MaxWidth != nil {
		if err := checkDimension("宽度", *c.MaxWidth); err != nil {
			return err
		}
	}
	if c.MaxHeight != nil {
		if err := checkDimension("高度", *c.MaxHeight); err != nil {
			return err
		}
	}
	if c.CacheEnabled && strings.TrimSpace(c.CacheDirectory) == "" {
		return fmt.Errorf("%w: 缓存目录为空", ErrInvalidInput)
	}
	return nil
}
